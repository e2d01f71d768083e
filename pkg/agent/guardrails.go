package agent

import "strings"

// Guardrail violation tags. All violated rules are reported, not just the first.
const (
	TagEmptyOrTooShort   = "empty_or_too_short"
	TagTooLong           = "too_long"
	TagLooksLikeJSON     = "looks_like_json"
	TagContainsCodeBlock = "contains_code_block"
	TagMissingBullets    = "missing_bullets"
	TagTooFewBullets     = "too_few_bullets"
	TagTooManyBullets    = "too_many_bullets"
)

// GuardrailLimits are the structural thresholds a candidate reply must meet.
type GuardrailLimits struct {
	MinChars   int
	MaxChars   int
	MinBullets int
	MaxBullets int
}

// DefaultGuardrailLimits returns the production thresholds.
func DefaultGuardrailLimits() GuardrailLimits {
	return GuardrailLimits{MinChars: 1, MaxChars: 800, MinBullets: 2, MaxBullets: 5}
}

// GuardrailResult is the outcome of validating one reply. OK is true iff no
// rule was violated.
type GuardrailResult struct {
	OK     bool
	Errors []string
}

var bulletMarkers = []string{"- ", "• ", "* "}

func isBulletLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}

func countBullets(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" && isBulletLine(line) {
			count++
		}
	}
	return count
}

// ValidateMessage checks a candidate reply against the structural rules. It
// is pure: same text and limits always yield the same outcome.
func ValidateMessage(message string, limits GuardrailLimits) GuardrailResult {
	errors := []string{}
	text := strings.TrimSpace(message)

	if len([]rune(text)) < limits.MinChars {
		errors = append(errors, TagEmptyOrTooShort)
	}
	if len([]rune(text)) > limits.MaxChars {
		errors = append(errors, TagTooLong)
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		errors = append(errors, TagLooksLikeJSON)
	}
	if strings.Contains(text, "```") {
		errors = append(errors, TagContainsCodeBlock)
	}

	bullets := countBullets(text)
	if bullets == 0 {
		errors = append(errors, TagMissingBullets)
	}
	if bullets < limits.MinBullets {
		errors = append(errors, TagTooFewBullets)
	}
	if bullets > limits.MaxBullets {
		errors = append(errors, TagTooManyBullets)
	}

	return GuardrailResult{OK: len(errors) == 0, Errors: errors}
}
