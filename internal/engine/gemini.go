package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// formulaPrompt asks for bare LaTeX so the response needs no parsing
// beyond delimiter stripping.
const formulaPrompt = `You are reading a cropped scan of handwritten or printed mathematical content.

Transcribe the content into LaTeX.

Rules:
- Return ONLY the LaTeX source, nothing else
- Do not wrap the output in markdown code blocks
- Do not add $ or $$ delimiters
- Preserve the mathematical structure exactly (fractions, exponents, roots, matrices)
- For plain numbers or words, return them as-is`

// Gemini recognizes formulas using Google Gemini vision models.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// GeminiAvailable reports whether an API key is configured.
func GeminiAvailable(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: gemini API key not set", ErrUnavailable)
	}
	return nil
}

// NewGemini creates a client for the given model name. An empty name means
// gemini-2.5-pro.
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if err := GeminiAvailable(apiKey); err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Recognize sends the crop with the transcription prompt and returns the
// cleaned LaTeX.
func (g *Gemini) Recognize(ctx context.Context, png []byte) (string, error) {
	parts := []genai.Part{
		genai.ImageData("png", png),
		genai.Text(formulaPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return stripDelimiters(responseText.String()), nil
}

// stripDelimiters removes the markdown fences and math delimiters models
// add despite the prompt.
func stripDelimiters(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range []string{"```latex", "```tex", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	for _, d := range []string{"$$", "$"} {
		if strings.HasPrefix(s, d) && strings.HasSuffix(s, d) && len(s) >= 2*len(d) {
			s = strings.TrimSpace(s[len(d) : len(s)-len(d)])
			break
		}
	}
	return s
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
