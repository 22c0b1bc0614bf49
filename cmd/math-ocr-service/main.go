package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/math-ocr/internal/engine"
	"github.com/zombor/math-ocr/internal/ocr"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Pick up GEMINI_API_KEY and friends from a local .env, if present
	_ = godotenv.Load()

	fs := ff.NewFlagSet("math-ocr-service")
	var (
		host          = fs.StringLong("host", "127.0.0.1", "HTTP server host")
		port          = fs.IntLong("port", 8766, "HTTP server port")
		formulaEngine = fs.StringLong("formula-engine", "pix2tex", "Formula engine: 'pix2tex' or 'gemini'")
		pix2texURL    = fs.StringLong("pix2tex-url", engine.DefaultPix2TexURL, "pix2tex server base URL")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		languages     = fs.StringLong("lang", "eng", "Comma-separated tesseract language list")
		cachePath     = fs.StringLong("cache", "", "Cache database path; repeated content is recognized once")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("MATH_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize engines
	text := ocr.TesseractProvider(*languages)
	formula, err := ocr.FormulaProvider(*formulaEngine, *pix2texURL, *geminiKey, *geminiModel)
	if err != nil {
		slog.Error("Invalid formula engine", "error", err)
		os.Exit(1)
	}

	// Engines stay loaded between requests; batch runs only sweep garbage
	svcOpts := []ocr.Option{ocr.WithPolicy(ocr.ReclaimSweep)}

	if *cachePath != "" {
		slog.Info("Opening result cache...", "path", *cachePath)
		cache, err := ocr.OpenCache(*cachePath)
		if err != nil {
			slog.Error("Failed to open result cache", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		svcOpts = append(svcOpts, ocr.WithCache(cache))
	}

	service := ocr.NewService(text, formula, svcOpts...)

	ctx := context.Background()
	info := service.DeviceInfo(ctx)
	if info.Available {
		slog.Info("Accelerator detected", "device", info.Kind, "name", info.Name)
	} else {
		slog.Info("No accelerator detected, using CPU")
	}

	// Load engines up front so the first request does not pay startup cost
	service.LoadAvailable(ctx)

	// Recognition work runs one request at a time
	gate := ocr.NewGate()
	defer gate.Close()

	// Start server in goroutine
	addr := fmt.Sprintf("%s:%d", *host, *port)
	server := ocr.NewServer(service, gate, addr)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
	service.ReleaseAll()
}
