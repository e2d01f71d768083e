package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/libreria-aurora/aurora-agent/pkg/tools"
)

// Intent is the router's decision for one message. Tool is empty when the
// message falls through to generic retrieval.
type Intent struct {
	Tool    string
	BookID  *int64
	ISBN    string
	Filters map[string]interface{}
}

var (
	bookIDPattern    = regexp.MustCompile(`(?i)\b(?:libro|id)\s*#?\s*(\d+)\b`)
	isbnPattern      = regexp.MustCompile(`(?i)\bisbn\b[:\s]*([0-9A-Za-z][0-9A-Za-z\- ]*)`)
	filterPattern    = regexp.MustCompile(`(?i)\b(categoria|categoría|autor|editorial|precio_min|precio_max)\s*[:=]\s*("([^"]*)"|[^\s]+)`)
	availablePattern = regexp.MustCompile(`\bdisponibles?\b`)
	soldOutPattern   = regexp.MustCompile(`\bagotados?\b`)
)

// DetectIntent applies the ordered extraction rules over the raw trimmed
// message. Only one branch matches; id/ISBN lookups take priority over
// filters, filters over generic retrieval.
func DetectIntent(message string) Intent {
	trimmed := strings.TrimSpace(message)

	if match := bookIDPattern.FindStringSubmatch(trimmed); match != nil {
		if id, err := strconv.ParseInt(match[1], 10, 64); err == nil {
			return Intent{Tool: tools.NameLookupBook, BookID: &id}
		}
	}

	if match := isbnPattern.FindStringSubmatch(trimmed); match != nil {
		cleaned := tools.NormalizeISBN(match[1])
		if len(cleaned) >= 10 && len(cleaned) <= 17 {
			return Intent{Tool: tools.NameLookupBook, ISBN: cleaned}
		}
	}

	filters := extractFilters(trimmed)
	if len(filters) > 0 {
		return Intent{Tool: tools.NameFilterCatalog, Filters: filters}
	}

	return Intent{}
}

func extractFilters(message string) map[string]interface{} {
	filters := map[string]interface{}{}

	for _, match := range filterPattern.FindAllStringSubmatch(message, -1) {
		key := strings.ToLower(match[1])
		if key == "categoría" {
			key = "categoria"
		}
		value := match[2]
		if match[3] != "" || strings.HasPrefix(match[2], `"`) {
			value = match[3]
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		filters[key] = value
	}

	// Availability is expressed as a bare word, not a key:value pair.
	lowered := strings.ToLower(message)
	if availablePattern.MatchString(lowered) {
		filters["disponible"] = true
	} else if soldOutPattern.MatchString(lowered) {
		filters["disponible"] = false
	}

	return filters
}
