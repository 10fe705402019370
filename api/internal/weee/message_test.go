package weee

import (
	"strings"
	"testing"

	"weee-bot/api/internal/vision"
)

func TestFormatReport(t *testing.T) {
	t.Parallel()

	res := &Result{
		ImageCaption: "a kitchen",
		TopObject:    &vision.DetectedObject{Name: "refrigerator", Caption: "an old fridge"},
		Category:     &Category{ID: 1, Name: CategoryName(1)},
		Confidence:   0.87,
	}

	got := FormatReport(res)
	for _, want := range []string{
		"Classificação WEEE: 1 - Equipamentos de troca de temperatura",
		"Objeto detectado: refrigerator",
		`Legenda do recorte: "an old fridge"`,
		`Legenda geral: "a kitchen"`,
		"Confiança visual: 87.0%",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestFormatReportNonEEE(t *testing.T) {
	t.Parallel()

	res := &Result{
		Filtered:   &Filtered{Reason: "non_eee", Text: "a dog on grass"},
		Confidence: 0.9,
	}
	got := FormatReport(res)
	if got != "Não parece ser um resíduo de EEE (WEEE)." {
		t.Errorf("report = %q", got)
	}
}
