package agent

import (
	"encoding/json"
	"fmt"

	"github.com/libreria-aurora/aurora-agent/pkg/retrieval"
)

// PromptConfig bounds the instruction block. The limits mirror the guardrail
// thresholds so a compliant model passes validation on the first try.
type PromptConfig struct {
	MinBullets int
	MaxBullets int
	MaxChars   int
}

// DefaultPromptConfig returns the production prompt limits.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{MinBullets: 2, MaxBullets: 5, MaxChars: 800}
}

func instructionBlock(cfg PromptConfig) string {
	return "Eres un asistente para una librería.\n" +
		"Reglas estrictas:\n" +
		"- NO inventes precios, IDs, stock ni disponibilidad.\n" +
		"- Usa únicamente los resultados provistos.\n" +
		"- Si no hay resultados, dilo claramente y sugiere refinar la búsqueda.\n" +
		"- Responde en español, conciso.\n" +
		fmt.Sprintf("- Usa entre %d y %d bullets, máximo %d caracteres.\n", cfg.MinBullets, cfg.MaxBullets, cfg.MaxChars) +
		"- No incluyas JSON ni bloques de código.\n"
}

func fewShots() string {
	return "Ejemplo 1:\n" +
		"Usuario: Busco ciencia ficción con robots\n" +
		"Respuesta:\n" +
		"- Tengo resultados relacionados con ciencia ficción y robots.\n" +
		"- ¿Quieres filtrar por autor o por año de publicación?\n\n" +
		"Ejemplo 2:\n" +
		"Usuario: isbn 9780307474728\n" +
		"Respuesta:\n" +
		"- Encontré el libro asociado a ese ISBN.\n" +
		"- ¿Quieres ver el detalle o buscar similares?\n"
}

// BuildPrompt assembles the constrained instruction plus retrieved context.
// Only the first five results are exposed to the model.
func BuildPrompt(userMessage string, result retrieval.Result, cfg PromptConfig) string {
	safeResults := result.Results
	if len(safeResults) > 5 {
		safeResults = safeResults[:5]
	}

	context := map[string]interface{}{
		"query":    result.Query,
		"degraded": result.Degraded,
		"source":   result.Source,
		"results":  safeResults,
	}
	encoded, err := json.Marshal(context)
	if err != nil {
		encoded = []byte("{}")
	}

	return instructionBlock(cfg) +
		"\n" + fewShots() +
		"\nMensaje del usuario:\n" + userMessage +
		"\n\nContexto de búsqueda (JSON):\n" + string(encoded) + "\n"
}
