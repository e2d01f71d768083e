package agent

import (
	"fmt"
	"strings"
)

// EmptyMessageReply is returned when the user sends a blank message.
const EmptyMessageReply = "Mensaje vacío. Escribe qué libro buscas."

// FallbackMessage renders the deterministic reply used when the LLM is
// unavailable, fails, or is rejected by guardrails. It depends only on the
// retrieval outcome, never on LLM output.
func FallbackMessage(query string, resultsCount int, degraded bool, warnings []string) string {
	if query == "" {
		return "Escribe una consulta para buscar libros (por título, autor o ISBN)."
	}

	mode := ""
	if degraded {
		mode = " (modo degradado)"
	}

	if resultsCount == 0 {
		base := fmt.Sprintf("No encontré resultados para '%s'%s.", query, mode)
		if len(warnings) > 0 {
			base += "\n\nDetalles: " + strings.Join(warnings, "; ")
		}
		return base
	}

	base := fmt.Sprintf("Encontré %d resultados para '%s'%s.", resultsCount, query, mode)
	if degraded {
		base += "\n\nNota: el buscador semántico no estaba disponible, así que usé búsqueda exacta."
	}
	return base
}
