package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageAccepts(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{name: "two dash bullets", message: "- Encontré dos resultados.\n- ¿Quieres filtrar por autor?"},
		{name: "mixed markers", message: "• Primer punto\n* Segundo punto"},
		{name: "five bullets", message: "- a\n- b\n- c\n- d\n- e"},
		{name: "prose around bullets", message: "Resultados:\n- Dune\n- Hyperion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateMessage(tt.message, DefaultGuardrailLimits())
			assert.True(t, result.OK, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestValidateMessageRejects(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantTags []string
	}{
		{
			name:     "empty",
			message:  "   ",
			wantTags: []string{TagEmptyOrTooShort, TagMissingBullets, TagTooFewBullets},
		},
		{
			name:     "json object",
			message:  `{"respuesta": "hola"}`,
			wantTags: []string{TagLooksLikeJSON, TagMissingBullets, TagTooFewBullets},
		},
		{
			name:     "json array",
			message:  `[1, 2, 3]`,
			wantTags: []string{TagLooksLikeJSON},
		},
		{
			name:     "code block",
			message:  "- a\n- b\n```python\nprint('x')\n```",
			wantTags: []string{TagContainsCodeBlock},
		},
		{
			name:     "prose without bullets",
			message:  "Encontré dos resultados para tu búsqueda.",
			wantTags: []string{TagMissingBullets, TagTooFewBullets},
		},
		{
			name:     "single bullet",
			message:  "- Solo un punto",
			wantTags: []string{TagTooFewBullets},
		},
		{
			name:     "too many bullets",
			message:  "- a\n- b\n- c\n- d\n- e\n- f",
			wantTags: []string{TagTooManyBullets},
		},
		{
			name:     "too long",
			message:  "- " + strings.Repeat("x", 900) + "\n- b",
			wantTags: []string{TagTooLong},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateMessage(tt.message, DefaultGuardrailLimits())
			assert.False(t, result.OK)
			for _, tag := range tt.wantTags {
				assert.Contains(t, result.Errors, tag)
			}
		})
	}
}

func TestValidateMessageReportsAllViolations(t *testing.T) {
	result := ValidateMessage("```"+strings.Repeat("x", 900)+"```", DefaultGuardrailLimits())

	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, TagTooLong)
	assert.Contains(t, result.Errors, TagContainsCodeBlock)
	assert.Contains(t, result.Errors, TagMissingBullets)
}

func TestValidateMessageCountsRunesNotBytes(t *testing.T) {
	// 790 accented chars are > 800 bytes but under the 800-rune limit.
	message := "- " + strings.Repeat("á", 700) + "\n- b"
	result := ValidateMessage(message, DefaultGuardrailLimits())
	assert.NotContains(t, result.Errors, TagTooLong)
}
