package ats

import (
	"math"
	"regexp"
	"strings"

	"github.com/jonathan/resume-reviewer/internal/ingestion"
	"github.com/jonathan/resume-reviewer/internal/parsing"
	"github.com/jonathan/resume-reviewer/internal/types"
)

// Signal weights. They sum to 1 so the weighted score stays in [0, 1].
const (
	weightKeywords       = 0.35
	weightCoverage       = 0.25
	weightQuantification = 0.20
	weightReadability    = 0.20
)

const (
	// quantDensity is the expected quantified statements per sentence.
	quantDensity = 0.6
	// maxFormattingPenalty caps the subtracted formatting penalty.
	maxFormattingPenalty = 0.15
	capsPenaltyWeight    = 0.15
	longPenaltyWeight    = 0.15
	longSentenceWords    = 35

	readabilityFloor = 30.0
	readabilitySpan  = 70.0
)

// ErrEmptyText is the breakdown error reported for empty input.
const ErrEmptyText = "empty resume text"

var (
	numberRe     = regexp.MustCompile(`\b\d+(\.\d+)?%?\b`)
	bulletLineRe = regexp.MustCompile(`(?m)^\s*[-•*]`)
	terminatorRe = regexp.MustCompile(`[.!?]`)
	allCapsRe    = regexp.MustCompile(`\b[A-Z]{3,}\b`)
)

// Score computes the ATS compatibility score (0 to 100, one decimal) of text
// against the required skills, along with the breakdown of every signal.
// Text that is empty once control characters and whitespace are stripped
// scores 0 and sets the breakdown Error field.
func Score(text string, requiredSkills []string) (float64, types.ATSBreakdown) {
	if ingestion.CleanText(text) == "" {
		return 0, EmptyBreakdown()
	}

	sections := DetectSections(text)
	coverage := float64(CountDetected(sections)) / float64(len(types.SectionNames))
	keywords := KeywordMatchRate(text, requiredSkills)
	quant := QuantificationSignal(text)
	read := FleschReadingEase(text)
	readNorm := clamp((read-readabilityFloor)/readabilitySpan, 0, 1)
	penalty := FormattingPenalty(text)

	weighted := weightKeywords*keywords +
		weightCoverage*coverage +
		weightQuantification*quant +
		weightReadability*readNorm
	score := round(clamp(weighted-penalty, 0, 1)*100, 1)

	return score, types.ATSBreakdown{
		SectionsDetected:     sections,
		SectionCoverage:      round(coverage, 3),
		KeywordMatchRate:     round(keywords, 3),
		QuantificationSignal: round(quant, 3),
		Readability:          round(read, 1),
		FormattingPenalty:    round(penalty, 3),
	}
}

// EmptyBreakdown is the breakdown returned for text that cannot be scored.
func EmptyBreakdown() types.ATSBreakdown {
	return types.ATSBreakdown{
		SectionsDetected: types.EmptySections(),
		Error:            ErrEmptyText,
	}
}

// KeywordMatchRate is the share of distinct normalized required skills that
// occur as a substring of the normalized text. Skills that normalize to
// nothing are ignored; with no usable skills the rate is 0.
func KeywordMatchRate(text string, skills []string) float64 {
	unique := parsing.UniqueNormalizedSkills(skills)
	if text == "" || len(unique) == 0 {
		return 0
	}
	norm := parsing.NormalizeToken(text)
	matched := 0
	for _, s := range unique {
		if strings.Contains(norm, s) {
			matched++
		}
	}
	return float64(matched) / float64(len(unique))
}

// MissingKeywords returns the required skills whose normalized form does not
// occur in the normalized text, in input order, one per normalized form.
func MissingKeywords(text string, skills []string) []string {
	norm := parsing.NormalizeToken(text)
	seen := make(map[string]bool, len(skills))
	missing := make([]string, 0)
	for _, s := range skills {
		n := parsing.NormalizeToken(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if !strings.Contains(norm, n) {
			missing = append(missing, strings.TrimSpace(s))
		}
	}
	return missing
}

// QuantificationSignal measures how dense numbers and bullet lines are
// relative to the number of sentences, capped at 1.
func QuantificationSignal(text string) float64 {
	if text == "" {
		return 0
	}
	nums := len(numberRe.FindAllStringIndex(text, -1))
	bullets := len(bulletLineRe.FindAllStringIndex(text, -1))
	sentences := len(terminatorRe.FindAllStringIndex(text, -1))
	if sentences < 1 {
		sentences = 1
	}
	return math.Min(1, float64(nums+bullets)/(float64(sentences)*quantDensity))
}

// FormattingPenalty penalizes shouting (all-caps words of 3+ letters) and
// run-on sentences longer than 35 words. The result is in [0, 0.15].
func FormattingPenalty(text string) float64 {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	caps := len(allCapsRe.FindAllStringIndex(text, -1))

	segments := terminatorRe.Split(text, -1)
	long := 0
	for _, s := range segments {
		if len(strings.Fields(s)) > longSentenceWords {
			long++
		}
	}

	capsRatio := float64(caps) / float64(max(1, words))
	longRatio := float64(long) / float64(max(1, len(segments)))
	return math.Min(maxFormattingPenalty, capsRatio*capsPenaltyWeight+longRatio*longPenaltyWeight)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
