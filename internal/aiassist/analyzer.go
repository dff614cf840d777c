// File: internal/aiassist/analyzer.go
package aiassist

import (
	"context"
	"encoding/json"
	"strings"

	"shoe_market_backend/internal/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultModel = "gemini-flash-latest"

// Categories the analyzer may assign.
var Categories = []string{"Basketball", "Running", "Casual", "Luxury", "Boots", "Other"}

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("ai analyzer not configured")

// ShoeAnalysis is the structured guess for a listing form.
type ShoeAnalysis struct {
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Color       string `json:"color"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Analyzer extracts listing fields from a shoe photo.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*ShoeAnalysis, error)
}

const analyzePrompt = `Analyze this image of a shoe. Extract these details:
- brand (e.g. Nike, Adidas)
- model (e.g. Air Jordan 1)
- color (dominant colors)
- category (Basketball, Running, Casual, Luxury, Boots, Other)
- description (a short, catchy 2-sentence marketing description)`

// GeminiAnalyzer calls the Gemini API with a JSON response schema.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiAnalyzer returns an analyzer that always fails with
// ErrNotConfigured when GEMINI_API_KEY is empty.
func NewGeminiAnalyzer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*GeminiAnalyzer, error) {
	a := &GeminiAnalyzer{model: cfg.GeminiModel, logger: logger.Named("GeminiAnalyzer")}
	if a.model == "" {
		a.model = defaultModel
	}
	if cfg.GeminiAPIKey == "" {
		a.logger.Info("GEMINI_API_KEY not set, AI assist will ask users to fill forms manually")
		return a, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}
	a.client = client
	return a, nil
}

func responseSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"brand":       str(),
			"model":       str(),
			"color":       str(),
			"category":    {Type: genai.TypeString, Enum: Categories},
			"description": str(),
		},
		Required: []string{"brand", "model", "color", "category", "description"},
	}
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*ShoeAnalysis, error) {
	if a.client == nil {
		return nil, ErrNotConfigured
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analyzePrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "generate content with %s", a.model)
	}
	return parseAnalysis(resp.Text())
}

func parseAnalysis(raw string) (*ShoeAnalysis, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty model response")
	}
	var out ShoeAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, errors.Wrap(err, "decode model response")
	}
	if out.Category != "" && !isCategory(out.Category) {
		out.Category = "Other"
	}
	return &out, nil
}

func isCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
