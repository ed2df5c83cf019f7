// Package rewriting checks resume bullets for style problems and suggests
// how to rewrite them.
package rewriting

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	// charsPerLine is the estimated number of characters per rendered line.
	charsPerLine = 100
	// maxBulletLines is how many lines a bullet may wrap to before it reads
	// as a paragraph.
	maxBulletLines = 2
	// minBulletChars skips fragments too short to judge.
	minBulletChars = 15
)

// Common strong action verbs for resume bullets (heuristic check)
var strongVerbs = map[string]bool{
	"achieved": true, "architected": true, "automated": true, "built": true,
	"created": true, "cut": true, "delivered": true, "designed": true,
	"developed": true, "drove": true, "engineered": true, "grew": true,
	"implemented": true, "improved": true, "increased": true, "launched": true,
	"led": true, "migrated": true, "optimized": true, "owned": true,
	"reduced": true, "scaled": true, "shipped": true, "spearheaded": true,
	"streamlined": true, "transformed": true, "won": true, "wrote": true,
}

// weakStarts are -ed words that pass the suffix heuristic but describe
// involvement rather than impact.
var weakStarts = map[string]bool{
	"assisted": true, "helped": true, "participated": true, "worked": true,
	"tasked": true, "involved": true, "supported": true,
}

// weakPhrases maps filler phrases to the kind of verb that should replace
// them. Phrases are matched case-insensitively on word boundaries.
var weakPhrases = map[string]string{
	"responsible for":       "led",
	"duties included":       "delivered",
	"helped":                "drove",
	"assisted with":         "delivered",
	"worked on":             "built",
	"participated in":       "contributed to",
	"was involved in":       "drove",
	"tasked with":           "owned",
	"in charge of":          "led",
	"team player":           "collaborated with",
	"hard worker":           "delivered",
	"detail oriented":       "audited",
	"detail-oriented":       "audited",
	"results-driven":        "achieved",
	"go-getter":             "initiated",
	"think outside the box": "designed",
}

var (
	bulletRe     = regexp.MustCompile(`^\s*[-*•]\s*(.+)$`)
	digitRe      = regexp.MustCompile(`\d`)
	weakPhraseRe = compileWeakPhrases()
)

func compileWeakPhrases() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(weakPhrases))
	for p := range weakPhrases {
		out[p] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return out
}

// StyleChecksResult holds the results of style validation for one bullet.
type StyleChecksResult struct {
	Text       string
	StrongVerb bool
	Quantified bool
	WeakPhrase string // first weak phrase found, "" if none
	TooLong    bool
}

// OK reports whether the bullet passes every check.
func (r StyleChecksResult) OK() bool {
	return r.StrongVerb && r.Quantified && r.WeakPhrase == "" && !r.TooLong
}

// problems counts failed checks; used to rank bullets worst first.
func (r StyleChecksResult) problems() int {
	n := 0
	if !r.StrongVerb {
		n++
	}
	if !r.Quantified {
		n++
	}
	if r.WeakPhrase != "" {
		n++
	}
	if r.TooLong {
		n++
	}
	return n
}

// ValidateStyle checks one bullet's text.
func ValidateStyle(text string) StyleChecksResult {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	return StyleChecksResult{
		Text:       text,
		StrongVerb: checkStrongVerb(lower),
		Quantified: checkQuantifiedImpact(text),
		WeakPhrase: findWeakPhrase(text),
		TooLong:    EstimateLines(len(text)) > maxBulletLines,
	}
}

// checkStrongVerb checks if text starts with a strong action verb
func checkStrongVerb(textLower string) bool {
	words := strings.Fields(textLower)
	if len(words) == 0 {
		return false
	}
	firstWord := strings.TrimRight(words[0], ".,!?;:")

	if strongVerbs[firstWord] {
		return true
	}
	if weakStarts[firstWord] {
		return false
	}
	// past tense -ed words are usually action verbs
	return strings.HasSuffix(firstWord, "ed") && len(firstWord) > 3
}

// checkQuantifiedImpact checks if text contains numbers or metrics
func checkQuantifiedImpact(text string) bool {
	return digitRe.MatchString(text) || strings.Contains(text, "%")
}

// findWeakPhrase returns the longest weak phrase in text, "" if none.
func findWeakPhrase(text string) string {
	best := ""
	for p, re := range weakPhraseRe {
		if re.MatchString(text) && (len(p) > len(best) || (len(p) == len(best) && p < best)) {
			best = p
		}
	}
	return best
}

// EstimateLines estimates the number of lines for a given text length
func EstimateLines(lengthChars int) int {
	if lengthChars <= 0 {
		return 1
	}
	return int(math.Ceil(float64(lengthChars) / charsPerLine))
}

// ExtractBullets returns the text of every bullet line ("-", "*" or "•")
// in document order.
func ExtractBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if b := strings.TrimSpace(m[1]); len(b) >= minBulletChars {
			out = append(out, b)
		}
	}
	return out
}

// Suggestion is a rewrite hint for one bullet.
type Suggestion struct {
	Original string `json:"original"`
	Hint     string `json:"hint"`
}

func (s Suggestion) String() string {
	return fmt.Sprintf("%q: %s", s.Original, s.Hint)
}

// SuggestRewrites checks every bullet in text and returns hints for at most
// limit failing bullets, worst first. Ties keep document order.
func SuggestRewrites(text string, limit int) []Suggestion {
	var failing []StyleChecksResult
	for _, b := range ExtractBullets(text) {
		if r := ValidateStyle(b); !r.OK() {
			failing = append(failing, r)
		}
	}
	sort.SliceStable(failing, func(i, j int) bool {
		return failing[i].problems() > failing[j].problems()
	})
	if limit >= 0 && len(failing) > limit {
		failing = failing[:limit]
	}

	out := make([]Suggestion, 0, len(failing))
	for _, r := range failing {
		out = append(out, Suggestion{Original: r.Text, Hint: hint(r)})
	}
	return out
}

func hint(r StyleChecksResult) string {
	var parts []string
	if r.WeakPhrase != "" {
		parts = append(parts, fmt.Sprintf("replace %q with an action verb such as %q", r.WeakPhrase, weakPhrases[r.WeakPhrase]))
	} else if !r.StrongVerb {
		parts = append(parts, "open with a strong action verb")
	}
	if !r.Quantified {
		parts = append(parts, "add a measurable result (a number, percentage or scale)")
	}
	if r.TooLong {
		parts = append(parts, fmt.Sprintf("trim it to %d lines or fewer", maxBulletLines))
	}
	h := strings.Join(parts, "; ")
	if h == "" {
		return h
	}
	return strings.ToUpper(h[:1]) + h[1:]
}

// LanguageFixes lists each weak phrase found anywhere in text with its
// suggested replacement, sorted by phrase.
func LanguageFixes(text string) []string {
	var found []string
	for p, re := range weakPhraseRe {
		if re.MatchString(text) {
			found = append(found, p)
		}
	}
	sort.Strings(found)
	out := make([]string, 0, len(found))
	for _, p := range found {
		out = append(out, fmt.Sprintf("Replace %q with a concrete action verb such as %q.", p, weakPhrases[p]))
	}
	return out
}
