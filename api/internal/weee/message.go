package weee

import (
	"fmt"
	"strings"
)

// FormatReport renders the PT-BR summary relayed to the reviewer.
func FormatReport(res *Result) string {
	var parts []string

	if res.Filtered != nil && res.Filtered.Reason == "non_eee" {
		parts = append(parts, "Não parece ser um resíduo de EEE (WEEE).")
		return strings.Join(parts, "\n")
	}

	if res.Category != nil {
		parts = append(parts, fmt.Sprintf("Classificação WEEE: %d - %s", res.Category.ID, res.Category.Name))
	}
	if res.TopObject != nil {
		if res.TopObject.Name != "" {
			parts = append(parts, "Objeto detectado: "+res.TopObject.Name)
		}
		if res.TopObject.Caption != "" {
			parts = append(parts, fmt.Sprintf("Legenda do recorte: %q", res.TopObject.Caption))
		}
	}
	if res.ImageCaption != "" {
		parts = append(parts, fmt.Sprintf("Legenda geral: %q", res.ImageCaption))
	}
	parts = append(parts, fmt.Sprintf("Confiança visual: %.1f%%", res.Confidence*100))

	return strings.Join(parts, "\n")
}
