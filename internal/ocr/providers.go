package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zombor/math-ocr/internal/engine"
)

// TesseractProvider reads plain text through the system tesseract
// installation. languages is a comma-separated tesseract language list.
func TesseractProvider(languages string) *Provider {
	var langs []string
	for _, l := range strings.Split(languages, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}

	return &Provider{
		Name:      "tesseract",
		Available: engine.TesseractAvailable,
		Open: func(ctx context.Context) (engine.Recognizer, error) {
			return engine.NewTesseract(langs...)
		},
	}
}

// FormulaProvider selects the formula engine by name: "pix2tex" talks to a
// local LaTeX-OCR server, "gemini" uses Google's API. An empty geminiKey
// falls back to the GEMINI_API_KEY environment variable.
func FormulaProvider(name, pix2texURL, geminiKey, geminiModel string) (*Provider, error) {
	switch name {
	case "pix2tex":
		return &Provider{
			Name:      "pix2tex",
			Available: func() error { return engine.Pix2TexAvailable(pix2texURL) },
			Open: func(ctx context.Context) (engine.Recognizer, error) {
				return engine.NewPix2Tex(pix2texURL)
			},
		}, nil
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		return &Provider{
			Name:      "gemini",
			Available: func() error { return engine.GeminiAvailable(apiKey) },
			Open: func(ctx context.Context) (engine.Recognizer, error) {
				return engine.NewGemini(ctx, apiKey, geminiModel)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown formula engine %q, valid engines are pix2tex and gemini", name)
	}
}
