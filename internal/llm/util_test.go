package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence with array", "```\n[1, 2]\n```", `[1, 2]`},
		{"single line fence", "```{\"a\": 1}```", `{"a": 1}`},
		{"preamble and epilogue", "Here is the review:\n{\"a\": {\"b\": [1]}}\nLet me know!", `{"a": {"b": [1]}}`},
		{"array before object", `Results: [{"x": 1}, {"x": 2}] done`, `[{"x": 1}, {"x": 2}]`},
		{"object before array", `{"list": [1]} [2]`, `{"list": [1]}`},
		{"escaped quotes and braces in strings", `{"s": "a \"}\" b", "t": "{"} extra`, `{"s": "a \"}\" b", "t": "{"}`},
		{"unbalanced returns trimmed text", "  {\"a\": [1, 2 \n", `{"a": [1, 2`},
		{"unbalanced array returns trimmed text", "\t[1, [2]\n", `[1, [2]`},
		{"no json", "  no json here  ", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

func TestCleanJSONBlock_FeedbackResponse(t *testing.T) {
	payload := `{"feedback_by_section": [{"section": "skills", "comment": "Group tools like {Go, SQL}"}], ` +
		`"missing_keywords": ["Kubernetes"], "bullet_rewrites": [], "tailored_summary": "Backend engineer"}`
	input := "Sure! Here's the feedback.\n```json\n" + payload + "\n```\nHope this helps."

	got := CleanJSONBlock(input)
	assert.Equal(t, payload, got)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(got), &doc))
	assert.Len(t, doc, 4)
	assert.Contains(t, doc, "missing_keywords")
}

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name  string
		input string
		open  byte
		close byte
		want  string
	}{
		{"empty object", "{}", '{', '}', "{}"},
		{"nested arrays with tail", "[[1],[2]] tail", '[', ']', "[[1],[2]]"},
		{"escaped backslash before quote", `{"a":"\\"} x`, '{', '}', `{"a":"\\"}`},
		{"not at start", "x{}", '{', '}', ""},
		{"empty input", "", '{', '}', ""},
		{"unclosed", "{{}", '{', '}', ""},
		{"wrong delimiter", "[1]", '{', '}', ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBalanced(tt.input, tt.open, tt.close))
		})
	}
}

func TestExtractJSONObjectAndArray(t *testing.T) {
	assert.Equal(t, `{"a": [1]}`, extractJSONObject(`{"a": [1]}, more`))
	assert.Empty(t, extractJSONObject(`[{"a": 1}]`))
	assert.Equal(t, `["}", "]"]`, extractJSONArray(`["}", "]"] more`))
	assert.Empty(t, extractJSONArray(`{"a": [1]}`))
}
