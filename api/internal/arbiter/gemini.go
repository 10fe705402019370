// Package arbiter holds the optional LLM override for the rule classifier.
// Everything here is best-effort: any failure means "no opinion" and the
// rule-based choice stands.
package arbiter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"weee-bot/api/internal/vision"
	"weee-bot/api/internal/weee"
)

type Gemini struct {
	APIKey string
	Model  string
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (g *Gemini) Decide(ctx context.Context, rule weee.RuleChoice, size *weee.SizeInfo, imageCaption string, top *vision.DetectedObject) (weee.Decision, error) {
	if g.APIKey == "" {
		// Not configured: decline without noise.
		return weee.Decision{}, nil
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return weee.Decision{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(0)}

	resp, err := m.GenerateContent(ctx, genai.Text(g.prompt(rule, size, imageCaption, top)))
	if err != nil {
		return weee.Decision{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return weee.Decision{}, nil
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return parseChoice(text.String()), nil
}

func (g *Gemini) prompt(rule weee.RuleChoice, size *weee.SizeInfo, imageCaption string, top *vision.DetectedObject) string {
	var cats []string
	for _, c := range weee.Categories {
		cats = append(cats, fmt.Sprintf("%d-%s", c.ID, c.Name))
	}

	var b strings.Builder
	b.WriteString("Você é um árbitro que classifica resíduos de EEE em UMA das 6 categorias WEEE.\n")
	b.WriteString("Retorne somente:\n- id (1..6)\n- nome\n- justificativa breve\n\n")
	b.WriteString("Categorias: " + strings.Join(cats, ", ") + "\n")
	b.WriteString(fmt.Sprintf("Sugestão de regras: %d-%s\n", rule.CategoryID, rule.CategoryName))
	if imageCaption != "" {
		b.WriteString("Legenda geral: " + imageCaption + "\n")
	}
	if top != nil {
		b.WriteString("Objeto: " + top.Name + "\n")
		if top.Caption != "" {
			b.WriteString("Legenda do recorte: " + top.Caption + "\n")
		}
	}
	if size != nil && size.Bucket != "" {
		b.WriteString(fmt.Sprintf("Tamanho: %s (razão %.3f)\n", size.Bucket, size.Ratio))
	}
	b.WriteString("\nEscolha a melhor categoria.")
	return b.String()
}

// parseChoice scans the free-text answer for a category id or name.
func parseChoice(text string) weee.Decision {
	lower := strings.ToLower(text)
	for _, c := range weee.Categories {
		if strings.Contains(text, strconv.Itoa(c.ID)) || strings.Contains(lower, strings.ToLower(c.Name)) {
			return weee.Decision{CategoryID: c.ID, Rationale: strings.TrimSpace(text)}
		}
	}
	return weee.Decision{}
}

func ptrFloat32(v float32) *float32 { return &v }
