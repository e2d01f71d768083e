package agent

import "strings"

// Canned suggestions used to pad a coerced reply up to the minimum bullet
// count.
var paddingSuggestions = []string{
	"- ¿Quieres refinar la búsqueda por autor, ISBN o categoría?",
	"- Puedo recomendarte libros similares si me indicas un título.",
}

func splitChunks(text string) []string {
	chunks := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// CoerceMessage attempts one deterministic repair of a reply that failed
// guardrail validation: it rebuilds the text as bullet lines from
// sentence-like chunks, padding and truncating to the configured bullet
// range. The caller must re-validate the result; coercion is a partial
// function and can still fail.
func CoerceMessage(message string, limits GuardrailLimits) string {
	chunks := splitChunks(strings.TrimSpace(message))

	bullets := make([]string, 0, len(chunks))
	hasBullet := false
	for _, chunk := range chunks {
		if isBulletLine(chunk) {
			hasBullet = true
			break
		}
	}

	for _, chunk := range chunks {
		if hasBullet {
			if isBulletLine(chunk) {
				bullets = append(bullets, strings.TrimSpace(chunk))
			}
			continue
		}
		bullets = append(bullets, "- "+chunk+".")
	}

	for _, suggestion := range paddingSuggestions {
		if len(bullets) >= limits.MinBullets {
			break
		}
		bullets = append(bullets, suggestion)
	}
	if len(bullets) > limits.MaxBullets {
		bullets = bullets[:limits.MaxBullets]
	}

	return strings.Join(bullets, "\n")
}
