package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultPix2TexURL is the address the bundled pix2tex API server binds by
// default.
const DefaultPix2TexURL = "http://127.0.0.1:8502"

// Pix2Tex recognizes formulas through a pix2tex (LaTeX-OCR) API server.
// The server exposes POST /predict/ taking a multipart "file" field and
// returning the LaTeX source as a JSON string.
type Pix2Tex struct {
	baseURL string
	client  *http.Client
}

// Pix2TexAvailable reports whether a pix2tex server answers at baseURL.
func Pix2TexAvailable(baseURL string) error {
	if baseURL == "" {
		baseURL = DefaultPix2TexURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: pix2tex server unreachable at %s", ErrUnavailable, baseURL)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: pix2tex server unhealthy (status %d)", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// NewPix2Tex creates a client for the server at baseURL.
func NewPix2Tex(baseURL string) (*Pix2Tex, error) {
	if baseURL == "" {
		baseURL = DefaultPix2TexURL
	}

	return &Pix2Tex{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second, // formula inference is slow on CPU
		},
	}, nil
}

// Recognize uploads the crop and returns the predicted LaTeX.
func (p *Pix2Tex) Recognize(ctx context.Context, png []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "content.png")
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	url := fmt.Sprintf("%s/predict/", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling pix2tex API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("pix2tex API error (status %d): %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	// The API wraps the prediction in a JSON string; older builds return
	// plain text.
	var latex string
	if err := json.Unmarshal(raw, &latex); err != nil {
		latex = string(raw)
	}
	return strings.TrimSpace(latex), nil
}

// Close drops idle connections; the model itself lives server-side.
func (p *Pix2Tex) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
