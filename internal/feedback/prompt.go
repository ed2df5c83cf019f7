package feedback

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-reviewer/internal/llm"
	"github.com/jonathan/resume-reviewer/internal/prompts"
)

// Prompt excerpt limits, in characters.
const (
	JDExcerptLimit     = 2000
	ResumeExcerptLimit = 6000
	MaxGuidanceBlobs   = 3
)

// OutputFields is the JSON structure requested from the generator.
var OutputFields = []llm.SchemaField{
	{Name: "feedback_by_section", Type: `{"section": "feedback"}`, Description: "Feedback per resume section", Required: true},
	{Name: "missing_keywords", Type: `["string"]`, Description: "Skills or keywords the role expects but the resume lacks", Required: true},
	{Name: "bullet_rewrites", Type: `[{"original": "string", "rewrite": "string"}]`, Description: "3-5 quantified bullet rewrites", Required: true},
	{Name: "language_fixes", Type: `["string"]`, Description: "Vague or redundant phrasing with concise alternatives"},
	{Name: "formatting_suggestions", Type: `["string"]`, Description: "Formatting and clarity improvements"},
	{Name: "tailored_summary", Type: `"string"`, Description: "3-line profile summary tailored to the role", Required: true},
}

// PromptInput is the material for one feedback request.
type PromptInput struct {
	Role       string
	JDText     string
	ResumeText string
	Guidance   []string
}

// BuildRequest renders the system instruction and user prompt.
func BuildRequest(in PromptInput) (Request, error) {
	system, err := prompts.Render(prompts.KeyReviewSystem, map[string]string{"Role": in.Role})
	if err != nil {
		return Request{}, err
	}

	guidance := in.Guidance
	if len(guidance) > MaxGuidanceBlobs {
		guidance = guidance[:MaxGuidanceBlobs]
	}
	prompt, err := prompts.Render(prompts.KeyReviewPrompt, map[string]string{
		"Role":          in.Role,
		"JDExcerpt":     Excerpt(in.JDText, JDExcerptLimit),
		"Guidance":      strings.Join(guidance, "\n\n"),
		"ResumeExcerpt": Excerpt(in.ResumeText, ResumeExcerptLimit),
		"OutputSchema":  llm.RenderOutputSchema(OutputFields),
	})
	if err != nil {
		return Request{}, err
	}
	return Request{System: system, Prompt: prompt}, nil
}

// Excerpt returns the first n characters of s without splitting a rune.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for count := 0; i < len(s) && count < n; count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
