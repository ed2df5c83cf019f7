package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"C sharp", "C#", "csharp"},
		{"C plus plus", "C++", "cplusplus"},
		{"dotnet core", ".NET Core", "dotnetcore"},
		{"dotnet", ".NET", "dotnet"},
		{"asp.net core", "ASP.NET Core", "aspnetcore"},
		{"asp.net", "ASP.NET", "aspnet"},
		{"web api", "Web API", "webapi"},
		{"rest api", "REST API", "restapi"},
		{"node.js", "Node.js", "nodejs"},
		{"node js", "Node JS", "nodejs"},
		{"plain word", "Python", "python"},
		{"punctuation stripped", "  Go, SQL & Docker!  ", "gosqldocker"},
		{"digits kept", "Python 3.11", "python311"},
		{"empty", "", ""},
		{"whitespace only", "   \n\t ", ""},
		{"non-ascii dropped", "Café résumé", "cafrsum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeToken(tt.input))
		})
	}
}

func TestNormalizeToken_WholeSentence(t *testing.T) {
	got := NormalizeToken("Node.js developer with ASP.NET Core and C# experience")
	assert.Contains(t, got, "nodejs")
	assert.Contains(t, got, "aspnetcore")
	assert.Contains(t, got, "csharp")
	assert.NotContains(t, got, "aspdotnet")
}

func TestNormalizeToken_Idempotent(t *testing.T) {
	inputs := []string{
		"C#", "C++", "ASP.NET Core", ".NET", "Node.js developer",
		"Web API / REST API", "SKILLS:\nPython, Go, SQL", "", "   ", "a.net c# c++",
		"Objective-C# and F#", "résumé — 100% ✓",
	}
	for _, in := range inputs {
		once := NormalizeToken(in)
		assert.Equal(t, once, NormalizeToken(once), "input %q", in)
	}
}

func TestNormalizeSkills(t *testing.T) {
	got := NormalizeSkills([]string{"Python", "", "  ", "C#", "python"})
	assert.Equal(t, []string{"python", "csharp", "python"}, got)
}

func TestUniqueNormalizedSkills(t *testing.T) {
	got := UniqueNormalizedSkills([]string{"Node.js", "node js", "NodeJS", "", "SQL", "sql"})
	assert.Equal(t, []string{"nodejs", "sql"}, got)
}

func TestSplitCSVList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"simple", "Python, SQL, Docker", []string{"Python", "SQL", "Docker"}},
		{"empty items dropped", "Go,, ,Rust,", []string{"Go", "Rust"}},
		{"empty", "", nil},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitCSVList(tt.input))
		})
	}
}
