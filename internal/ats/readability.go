package ats

import (
	"math"
	"strings"
	"unicode"

	"github.com/jdkato/prose/summarize"
)

// neutralReadability is reported when the text has no scorable words.
const neutralReadability = 50.0

// FleschReadingEase computes the Flesch reading-ease score of text, clamped
// to [0, 100]:
//
//	206.835 - 1.015*(words/sentences) - 84.6*(syllables/words)
func FleschReadingEase(text string) float64 {
	if !hasWord(text) {
		return neutralReadability
	}
	doc := summarize.NewDocument(text)
	if doc.NumWords == 0 || doc.NumSentences == 0 {
		return neutralReadability
	}
	score := doc.FleschReadingEase()
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return neutralReadability
	}
	return clamp(score, 0, 100)
}

// hasWord reports whether text has a whitespace-separated token containing
// a letter.
func hasWord(text string) bool {
	for _, f := range strings.Fields(text) {
		if strings.IndexFunc(f, unicode.IsLetter) >= 0 {
			return true
		}
	}
	return false
}
