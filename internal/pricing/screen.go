package pricing

import (
	"strings"
	"unicode"
)

// DefaultHazards are phrases that mark a task as unsafe for a provider to take
// on without a specialist. The screen is off unless a caller passes a list.
var DefaultHazards = []string{
	"asbestos",
	"black mold",
	"mold remediation",
	"biohazard cleanup",
	"hazmat",
	"gas leak",
	"gas line repair",
	"live wire",
	"exposed wiring",
	"sewage backup",
	"used syringes",
}

// ContainsHazard returns the first hazard phrase that appears as whole words
// (case-insensitive) in the combined service type and description, or "" when
// none does.
func ContainsHazard(serviceType, description string, hazards []string) string {
	if len(hazards) == 0 {
		return ""
	}
	text := " " + normalizeWords(serviceType+" "+description) + " "
	for _, h := range hazards {
		phrase := normalizeWords(h)
		if phrase == "" {
			continue
		}
		if strings.Contains(text, " "+phrase+" ") {
			return h
		}
	}
	return ""
}

// normalizeWords lowercases s and collapses every run of non-alphanumerics to
// one space.
func normalizeWords(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
