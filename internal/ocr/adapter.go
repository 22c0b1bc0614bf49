package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zombor/math-ocr/internal/engine"
)

// Provider describes how to reach one recognition engine. Construction is
// deferred so binaries can report availability without paying engine
// startup cost.
type Provider struct {
	// Name tags results produced by this engine.
	Name string

	// Available reports whether Open could succeed right now.
	Available func() error

	// Open constructs the engine. Called at most once per load.
	Open func(ctx context.Context) (engine.Recognizer, error)
}

// Adapter lazily opens a Provider's engine and serializes access to it.
// Engines hold native handles or remote sessions that tolerate one caller
// at a time.
type Adapter struct {
	mu       sync.Mutex
	provider *Provider
	rec      engine.Recognizer
}

// NewAdapter wraps provider without opening it.
func NewAdapter(provider *Provider) *Adapter {
	return &Adapter{provider: provider}
}

// Name returns the engine's result tag.
func (a *Adapter) Name() string {
	return a.provider.Name
}

// Available reports whether the engine could be opened.
func (a *Adapter) Available() error {
	return a.provider.Available()
}

// EnsureLoaded opens the engine if it is not already open.
func (a *Adapter) EnsureLoaded(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ensureLocked(ctx)
}

func (a *Adapter) ensureLocked(ctx context.Context) error {
	if a.rec != nil {
		return nil
	}

	slog.Info("Loading engine...", "engine", a.provider.Name)
	rec, err := a.provider.Open(ctx)
	if err != nil {
		return fmt.Errorf("loading %s: %w", a.provider.Name, err)
	}
	a.rec = rec
	slog.Info("Engine loaded", "engine", a.provider.Name)
	return nil
}

// Recognize runs one image through the engine, opening it on first use.
// The engine lock is held for the whole call.
func (a *Adapter) Recognize(ctx context.Context, png []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureLocked(ctx); err != nil {
		return "", err
	}
	return a.rec.Recognize(ctx, png)
}

// Loaded reports whether the engine is currently open.
func (a *Adapter) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec != nil
}

// Release closes the engine if open and reports whether it did anything.
func (a *Adapter) Release() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec == nil {
		return false
	}
	if err := a.rec.Close(); err != nil {
		slog.Warn("Failed to close engine", "engine", a.provider.Name, "error", err)
	}
	a.rec = nil
	return true
}
