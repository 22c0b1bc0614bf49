package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes short text tokens through the system tesseract
// installation. The client and its loaded language data live for the
// lifetime of the struct.
type Tesseract struct {
	client *gosseract.Client
}

// TesseractAvailable reports whether the tesseract binary is installed.
func TesseractAvailable() error {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return fmt.Errorf("%w: tesseract not found in PATH", ErrUnavailable)
	}
	return nil
}

// NewTesseract creates a client configured for the given languages.
// An empty list means English.
func NewTesseract(languages ...string) (*Tesseract, error) {
	if err := TesseractAvailable(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	// Crops carry no DPI metadata; without a hint tesseract warns and
	// guesses badly on small cutouts.
	if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), "300"); err != nil {
		client.Close()
		return nil, fmt.Errorf("set dpi: %w", err)
	}

	return &Tesseract{client: client}, nil
}

// Recognize returns the text of the highest-confidence line tesseract
// found. Crops hold a single token or short expression, so one line wins;
// ties keep the earliest line.
func (t *Tesseract) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := t.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return "", fmt.Errorf("read text lines: %w", err)
	}

	best := ""
	bestConf := -1.0
	for _, b := range boxes {
		if b.Confidence > bestConf {
			best = b.Word
			bestConf = b.Confidence
		}
	}
	return strings.TrimSpace(best), nil
}

// Close tears down the tesseract client.
func (t *Tesseract) Close() error {
	return t.client.Close()
}
