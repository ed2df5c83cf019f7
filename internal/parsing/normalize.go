// Package parsing provides the token normalization shared by skill matching,
// role indexing and ATS scoring.
package parsing

import (
	"strings"
)

// replacement is one literal substitution applied to lowercased text.
type replacement struct {
	from string
	to   string
}

// techReplacements maps technical spellings to a canonical alphanumeric form.
// Order matters: a pattern must come before any shorter pattern it contains
// (".net core" before ".net", "asp.net core" before both).
var techReplacements = []replacement{
	{"asp.net core", "aspnetcore"},
	{"asp.net", "aspnet"},
	{".net core", "dotnetcore"},
	{".net", "dotnet"},
	{"c#", "csharp"},
	{"c++", "cplusplus"},
	{"web api", "webapi"},
	{"rest api", "restapi"},
	{"node.js", "nodejs"},
	{"node js", "nodejs"},
}

// NormalizeToken canonicalizes a token or a whole text into lowercase
// alphanumerics. Known technical abbreviations are expanded first so that
// "C#" and "C" do not collapse to the same token.
//
// The result only contains [a-z0-9], so NormalizeToken is idempotent.
func NormalizeToken(token string) string {
	if token == "" {
		return ""
	}

	t := strings.ToLower(strings.TrimSpace(token))
	for _, r := range techReplacements {
		if strings.Contains(t, r.from) {
			t = strings.ReplaceAll(t, r.from, r.to)
		}
	}

	var sb strings.Builder
	sb.Grow(len(t))
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// NormalizeSkills normalizes every skill and drops the ones that normalize to
// nothing. Order is preserved; duplicates are kept.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if n := NormalizeToken(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// UniqueNormalizedSkills returns the distinct non-empty normalized forms of
// skills, in first-seen order.
func UniqueNormalizedSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		n := NormalizeToken(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SplitCSVList splits a comma-separated list into trimmed, non-empty items.
func SplitCSVList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
