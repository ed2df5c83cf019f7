package ats

import (
	"strings"
	"testing"

	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
Summary:
Backend engineer with 6 years of experience building APIs.

Experience
- Built a payments service in Go handling 1200 requests per second.
- Reduced query latency by 35% with PostgreSQL indexing.
- Led a team of 4 engineers.

Projects
- Open source CLI for log analysis.

Skills:
Python, Go, SQL, Docker, Kubernetes

Education
B.Sc. Computer Science, State University, GPA 3.8

Certifications
AWS Certified Developer

Achievements
Hackathon winner 2021.
`

func TestDetectSections_Empty(t *testing.T) {
	got := DetectSections("")
	require.Len(t, got, 7)
	for _, name := range types.SectionNames {
		v, ok := got[name]
		assert.True(t, ok, name)
		assert.False(t, v, name)
	}
}

func TestDetectSections_FullResume(t *testing.T) {
	got := DetectSections(sampleResume)
	require.Len(t, got, 7)
	for _, name := range types.SectionNames {
		assert.True(t, got[name], name)
	}
}

func TestDetectSections_Headers(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		section string
	}{
		{"exact header", "SUMMARY\nsomething", types.SectionSummary},
		{"header with colon", "Technical Skills:\nx", types.SectionSkills},
		{"synonym header", "Honors\nDean's list", types.SectionAchievements},
		{"hint in body", "I completed several courses online", types.SectionCertifications},
		{"multi word hint", "see my personal projects below", types.SectionProjects},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, DetectSections(tt.text)[tt.section])
		})
	}
}

func TestDetectSections_Heuristics(t *testing.T) {
	t.Run("experience from years", func(t *testing.T) {
		assert.True(t, DetectSections("I have 5 years in retail")[types.SectionExperience])
	})
	t.Run("experience from verb", func(t *testing.T) {
		assert.True(t, DetectSections("I implemented a cache")[types.SectionExperience])
	})
	t.Run("education from degree", func(t *testing.T) {
		assert.True(t, DetectSections("Holds a degree in math")[types.SectionEducation])
	})
	t.Run("skills from token variety", func(t *testing.T) {
		assert.True(t, DetectSections("go c++ c# rust java sql aws gcp k8s")[types.SectionSkills])
	})
	t.Run("few tokens no skills", func(t *testing.T) {
		assert.False(t, DetectSections("go go go go")[types.SectionSkills])
	})
	t.Run("whole word only", func(t *testing.T) {
		got := DetectSections("aboutface")
		assert.False(t, got[types.SectionSummary])
	})
}

func TestKeywordMatchRate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		skills   []string
		expected float64
	}{
		{"half matched", "Skills:\nPython, Go, SQL", []string{"Python", "Java"}, 0.5},
		{"no skills", "Python", nil, 0},
		{"empty skills only", "Python", []string{"", "  ", "!!"}, 0},
		{"duplicates collapse", "Python", []string{"Python", "python", "PYTHON"}, 1},
		{"technical tokens", "Worked with C# and ASP.NET Core", []string{"C#", "ASP.NET Core", "C++"}, 2.0 / 3.0},
		{"empty text", "", []string{"Go"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, KeywordMatchRate(tt.text, tt.skills), 1e-9)
		})
	}
}

func TestMissingKeywords(t *testing.T) {
	got := MissingKeywords("Python and Docker", []string{"Java", "Python", "java", "", "Kubernetes"})
	assert.Equal(t, []string{"Java", "Kubernetes"}, got)
	assert.Empty(t, MissingKeywords("Go", []string{"go"}))
}

func TestQuantificationSignal(t *testing.T) {
	assert.Equal(t, 0.0, QuantificationSignal(""))
	assert.Equal(t, 1.0, QuantificationSignal("- 10\n- 20\n- 30%"))
	// 1 number, 0 bullets, 2 sentences: 1 / 1.2
	assert.InDelta(t, 1/1.2, QuantificationSignal("Grew sales 10 times. Then left."), 1e-9)
	assert.Equal(t, 0.0, QuantificationSignal("No numbers here. None at all."))
}

func TestFormattingPenalty(t *testing.T) {
	assert.Equal(t, 0.0, FormattingPenalty(""))
	assert.Equal(t, 0.0, FormattingPenalty("A calm sentence. Another one."))

	shouting := strings.Repeat("LOUD WORDS EVERYWHERE ", 50)
	assert.InDelta(t, 0.15, FormattingPenalty(shouting), 1e-9)

	runOn := strings.Repeat("word ", 400)
	p := FormattingPenalty(runOn)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 0.15)
}

func TestFleschReadingEase(t *testing.T) {
	assert.Equal(t, neutralReadability, FleschReadingEase(""))
	assert.Equal(t, neutralReadability, FleschReadingEase("123 456 --"))

	easy := FleschReadingEase("The cat sat on the mat. The dog ran.")
	hard := FleschReadingEase("Comprehensive infrastructure modernization necessitated extraordinarily sophisticated organizational coordination.")
	assert.Greater(t, easy, hard)
	assert.GreaterOrEqual(t, hard, 0.0)
	assert.LessOrEqual(t, easy, 100.0)
}

func TestFleschReadingEase_Clamped(t *testing.T) {
	tests := []string{
		"Go. Run. Eat. Sit.",
		strings.Repeat("Internationalization ", 60) + "professionalization.",
	}
	for _, text := range tests {
		got := FleschReadingEase(text)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestScore_Empty(t *testing.T) {
	for _, text := range []string{"", "   \n\t", "\x00\x01", "\r\n\x7f \ufffd"} {
		score, breakdown := Score(text, []string{"Go"})
		assert.Equal(t, 0.0, score)
		assert.Equal(t, ErrEmptyText, breakdown.Error)
		assert.Len(t, breakdown.SectionsDetected, 7)
	}
}

func TestScore_SampleResume(t *testing.T) {
	score, b := Score(sampleResume, []string{"Python", "Go", "Java"})
	assert.Empty(t, b.Error)
	assert.Equal(t, 1.0, b.SectionCoverage)
	assert.InDelta(t, 0.667, b.KeywordMatchRate, 1e-9)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.Equal(t, score, round(score, 1))
}

func TestScore_Bounds(t *testing.T) {
	inputs := []struct {
		text   string
		skills []string
	}{
		{strings.Repeat("ALL CAPS SHOUTING TEXT ", 200), []string{"", "", "x"}},
		{strings.Repeat("1 2 3 4 5 ", 300), nil},
		{"a", []string{"a", "a", "A", ""}},
		{strings.Repeat("supercalifragilisticexpialidocious ", 100), []string{"super"}},
		{sampleResume, []string{"Python", "python", "Python"}},
		{"!!!???...", []string{"!"}},
	}
	for _, in := range inputs {
		score, b := Score(in.text, in.skills)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
		assert.GreaterOrEqual(t, b.FormattingPenalty, 0.0)
		assert.LessOrEqual(t, b.FormattingPenalty, 0.15)
		assert.GreaterOrEqual(t, b.KeywordMatchRate, 0.0)
		assert.LessOrEqual(t, b.KeywordMatchRate, 1.0)
		assert.GreaterOrEqual(t, b.QuantificationSignal, 0.0)
		assert.LessOrEqual(t, b.QuantificationSignal, 1.0)
	}
}
