package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zombor/math-ocr/internal/device"
	"github.com/zombor/math-ocr/internal/imaging"
)

// DefaultPattern selects the files a batch run considers.
const DefaultPattern = "*.png"

// ReclaimPolicy controls what happens to engine resources after a unit of
// work.
type ReclaimPolicy int

const (
	// ReclaimNone leaves engines loaded and memory untouched.
	ReclaimNone ReclaimPolicy = iota
	// ReclaimSweep runs a garbage collection pass but keeps engines
	// loaded. The long-running service uses this so models load once.
	ReclaimSweep
	// ReclaimRelease closes engines and returns freed memory to the OS.
	// One-shot CLI invocations use this.
	ReclaimRelease
)

// Service routes images to recognition engines and aggregates results.
type Service struct {
	text    *Adapter
	formula *Adapter
	policy  ReclaimPolicy
	cache   *Cache
	prober  *device.Prober

	padding   int
	threshold int

	detectOnce sync.Once
	info       device.Info
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the post-work memory reclaim behavior.
func WithPolicy(policy ReclaimPolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithCache persists successful recognitions keyed by file content.
func WithCache(cache *Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithProber sets the accelerator prober used for device reporting.
func WithProber(prober *device.Prober) Option {
	return func(s *Service) { s.prober = prober }
}

// NewService wires the text and formula engines behind their adapters.
func NewService(text, formula *Provider, opts ...Option) *Service {
	s := &Service{
		text:      NewAdapter(text),
		formula:   NewAdapter(formula),
		policy:    ReclaimRelease,
		prober:    device.NewProber(nil),
		padding:   imaging.DefaultPadding,
		threshold: imaging.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecognizeFile runs the full pipeline on one image file. Failures come
// back inside the Result; this never returns an error so batch runs keep
// going.
func (s *Service) RecognizeFile(ctx context.Context, path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return failedResult(path, fmt.Sprintf("reading file: %v", err))
	}

	if s.cache != nil {
		if res, ok := s.cache.Lookup(data); ok {
			slog.Debug("Cache hit", "file", path)
			res.File = path
			return res
		}
	}

	img, err := imaging.Decode(data, filepath.Ext(path))
	if err != nil {
		return failedResult(path, err.Error())
	}

	res := s.recognize(ctx, path, img)

	if s.cache != nil && res.Success {
		if err := s.cache.Store(data, res); err != nil {
			slog.Warn("Failed to cache result", "file", path, "error", err)
		}
	}
	return res
}

// recognize crops, classifies, and dispatches one decoded image.
func (s *Service) recognize(ctx context.Context, path string, img image.Image) Result {
	content, ok := imaging.Locate(img, s.padding, s.threshold)
	if !ok {
		message := "No content found"
		return Result{
			File:   path,
			Error:  &message,
			Method: MethodNone,
		}
	}

	crop, err := imaging.EncodePNG(content.Crop)
	if err != nil {
		return failedResult(path, fmt.Sprintf("encoding crop: %v", err))
	}

	simple := imaging.IsSimple(content.RawWidth, content.RawHeight)

	var latex, method string
	if simple {
		latex, method, err = s.recognizeSimple(ctx, crop)
	} else {
		latex, err = s.formula.Recognize(ctx, crop)
		method = s.formula.Name()
	}
	if err != nil {
		return failedResult(path, err.Error())
	}

	return Result{
		Success:     true,
		Latex:       latex,
		File:        path,
		Method:      method,
		ContentSize: [2]int{content.RawWidth, content.RawHeight},
		IsSimple:    &simple,
	}
}

// recognizeSimple runs the text engine and escalates to the formula engine
// when it reads nothing. Single characters come back empty more often than
// they come back wrong.
func (s *Service) recognizeSimple(ctx context.Context, crop []byte) (latex, method string, err error) {
	text, err := s.text.Recognize(ctx, crop)
	if err != nil {
		return "", "", err
	}

	text = strings.TrimSpace(text)
	if text != "" {
		return text, s.text.Name(), nil
	}

	slog.Debug("Text engine read nothing, escalating to formula engine")
	latex, err = s.formula.Recognize(ctx, crop)
	if err != nil {
		return "", "", err
	}
	return latex, s.text.Name() + "+" + s.formula.Name(), nil
}

// RecognizeDirectory processes every file in dir matching pattern, in
// lexicographic order. The report carries one entry per file; per-file
// failures never abort the run.
func (s *Service) RecognizeDirectory(ctx context.Context, dir, pattern string) (Report, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Report{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return Report{}, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	sort.Strings(files)

	report := Report{Results: map[string]string{}, Errors: []BatchError{}}
	if len(files) == 0 {
		return report, nil
	}
	defer s.Reclaim()

	if mem := s.prober.Memory(ctx); mem.TotalMB > 0 {
		slog.Info("Accelerator memory at batch start",
			"allocated_mb", mem.AllocatedMB, "total_mb", mem.TotalMB)
	}

	for i, file := range files {
		name := filepath.Base(file)
		slog.Info("Processing image", "index", i+1, "total", len(files), "file", name)

		res := s.RecognizeFile(ctx, file)
		if res.Success {
			report.Results[name] = res.Latex
			if res.IsSimple != nil && *res.IsSimple {
				report.SimpleCount++
			} else {
				report.ComplexCount++
			}
		} else {
			message := ""
			if res.Error != nil {
				message = *res.Error
			}
			report.Errors = append(report.Errors, BatchError{File: name, Error: message})
			report.Results[name] = fmt.Sprintf("[ERROR: %s]", message)
		}
	}

	report.Count = len(report.Results)
	report.SuccessCount = report.Count - len(report.Errors)
	return report, nil
}

// LoadAvailable opens every engine whose dependency check passes. Engines
// that fail to open stay unloaded and retry lazily on first use.
func (s *Service) LoadAvailable(ctx context.Context) {
	for _, a := range []*Adapter{s.text, s.formula} {
		if err := a.Available(); err != nil {
			slog.Warn("Engine unavailable, skipping preload", "engine", a.Name(), "error", err)
			continue
		}
		if err := a.EnsureLoaded(ctx); err != nil {
			slog.Warn("Engine preload failed", "engine", a.Name(), "error", err)
		}
	}

	if mem := s.prober.Memory(ctx); mem.TotalMB > 0 {
		slog.Info("Engines loaded",
			"allocated_mb", mem.AllocatedMB, "total_mb", mem.TotalMB)
	}
}

// Loaded reports per-engine load state keyed by engine name.
func (s *Service) Loaded() map[string]bool {
	return map[string]bool{
		s.text.Name():    s.text.Loaded(),
		s.formula.Name(): s.formula.Loaded(),
	}
}

// Reclaim applies the configured reclaim policy.
func (s *Service) Reclaim() {
	switch s.policy {
	case ReclaimSweep:
		runtime.GC()
	case ReclaimRelease:
		s.ReleaseAll()
	}
}

// ReleaseAll closes both engines and returns freed memory to the OS. Safe
// to call when nothing is loaded.
func (s *Service) ReleaseAll() {
	released := s.text.Release()
	if s.formula.Release() {
		released = true
	}
	if !released {
		return
	}

	runtime.GC()
	debug.FreeOSMemory()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if mem := s.prober.Memory(ctx); mem.TotalMB > 0 {
		slog.Info("Engines released",
			"allocated_mb", mem.AllocatedMB, "total_mb", mem.TotalMB)
	} else {
		slog.Info("Engines released")
	}
}

// DeviceInfo reports the detected accelerator. The probe runs once and is
// cached for the service lifetime.
func (s *Service) DeviceInfo(ctx context.Context) device.Info {
	s.detectOnce.Do(func() {
		s.info = s.prober.Detect(ctx)
	})
	return s.info
}

// MemoryInfo reports current accelerator memory usage.
func (s *Service) MemoryInfo(ctx context.Context) device.Memory {
	return s.prober.Memory(ctx)
}
