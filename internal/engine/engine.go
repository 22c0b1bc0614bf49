package engine

import (
	"context"
	"errors"
)

// ErrUnavailable marks an engine whose underlying dependency is missing:
// no tesseract install, no reachable pix2tex server, no API key.
var ErrUnavailable = errors.New("engine unavailable")

// Recognizer turns an encoded image into recognized text. Implementations
// are not safe for concurrent use; callers serialize access.
type Recognizer interface {
	// Recognize extracts text or LaTeX from a PNG-encoded image.
	Recognize(ctx context.Context, png []byte) (string, error)

	// Close releases whatever the engine holds.
	Close() error
}
