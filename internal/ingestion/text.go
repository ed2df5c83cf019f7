package ingestion

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bulletGlyphRe = regexp.MustCompile(`[•▪◦●‣∙]`)
	innerSpaceRe  = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	spaceRunRe    = regexp.MustCompile(` {2,}`)
)

// CleanText lightly normalizes text while keeping every line break:
// control characters other than newline are removed (carriage returns and
// tabs become spaces), runs of spaces collapse to one, and lines and the
// whole text are trimmed.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")

	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		switch {
		case r == '\n':
			sb.WriteRune(r)
		case r == '\r' || r == '\t':
			sb.WriteByte(' ')
		case r == unicode.ReplacementChar || unicode.IsControl(r):
			// dropped
		default:
			sb.WriteRune(r)
		}
	}

	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanLine collapses inner space runs and trims trailing whitespace.
// Leading indentation is reduced to a single space run so nested bullets
// still read as bullets.
func cleanLine(line string) string {
	line = strings.TrimRight(line, " ")
	if line == "" {
		return ""
	}
	return spaceRunRe.ReplaceAllString(line, " ")
}

// NormalizeResumeText prepares extracted document text for scoring: bullet
// glyphs become "-", runs of spaces and tabs inside a line collapse, at
// most one blank line is kept between blocks, then CleanText is applied.
func NormalizeResumeText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = bulletGlyphRe.ReplaceAllString(text, "-")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = innerSpaceRe.ReplaceAllString(line, " ")
	}
	text = strings.Join(lines, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	return CleanText(text)
}
