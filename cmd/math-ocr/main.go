package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/math-ocr/internal/engine"
	"github.com/zombor/math-ocr/internal/ocr"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type options struct {
	input         string
	batchDir      string
	pattern       string
	output        string
	xlsxPath      string
	htmlPath      string
	cachePath     string
	noCleanup     bool
	check         bool
	verbose       bool
	formulaEngine string
	pix2texURL    string
	geminiKey     string
	geminiModel   string
	languages     string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Pick up GEMINI_API_KEY and friends from a local .env, if present
	_ = godotenv.Load()

	fs := ff.NewFlagSet("math-ocr")
	var (
		batchDir      = fs.StringLong("batch-dir", "", "Process every matching image in this directory")
		pattern       = fs.StringLong("pattern", ocr.DefaultPattern, "Glob pattern for batch runs")
		output        = fs.StringLong("output", "", "Write results JSON to this file instead of stdout")
		xlsxPath      = fs.StringLong("xlsx", "", "Also write a spreadsheet report (batch runs only)")
		htmlPath      = fs.StringLong("html", "", "Also write an HTML report with typeset math (batch runs only)")
		cachePath     = fs.StringLong("cache", "", "Cache database path; repeated content is recognized once")
		formulaEngine = fs.StringLong("formula-engine", "pix2tex", "Formula engine: 'pix2tex' or 'gemini'")
		pix2texURL    = fs.StringLong("pix2tex-url", engine.DefaultPix2TexURL, "pix2tex server base URL")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		languages     = fs.StringLong("lang", "eng", "Comma-separated tesseract language list")
		noCleanup     = fs.BoolLong("no-cleanup", "Keep engines loaded instead of releasing them at exit")
		check         = fs.BoolLong("check", "Report engine and GPU availability, then exit")
		verbose       = fs.BoolLong("verbose", "Enable debug logging and verbose checks")
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

	opts := options{
		batchDir:      *batchDir,
		pattern:       *pattern,
		output:        *output,
		xlsxPath:      *xlsxPath,
		htmlPath:      *htmlPath,
		cachePath:     *cachePath,
		noCleanup:     *noCleanup,
		check:         *check,
		verbose:       *verbose,
		formulaEngine: *formulaEngine,
		pix2texURL:    *pix2texURL,
		geminiKey:     *geminiKey,
		geminiModel:   *geminiModel,
		languages:     *languages,
	}
	if args := fs.GetArgs(); len(args) > 0 {
		opts.input = args[0]
	}

	if !opts.check && opts.input == "" && opts.batchDir == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: an image, a directory, or --batch-dir is required\n")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		if !errors.Is(err, ocr.ErrNotReady) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	text := ocr.TesseractProvider(opts.languages)
	formula, err := ocr.FormulaProvider(opts.formulaEngine, opts.pix2texURL, opts.geminiKey, opts.geminiModel)
	if err != nil {
		return err
	}

	policy := ocr.ReclaimRelease
	if opts.noCleanup {
		policy = ocr.ReclaimNone
	}
	svcOpts := []ocr.Option{ocr.WithPolicy(policy)}

	if opts.cachePath != "" {
		cache, err := ocr.OpenCache(opts.cachePath)
		if err != nil {
			return err
		}
		defer cache.Close()
		svcOpts = append(svcOpts, ocr.WithCache(cache))
	}

	service := ocr.NewService(text, formula, svcOpts...)
	ctx := context.Background()

	if opts.check {
		return runCheck(ctx, service, opts.verbose)
	}

	if !opts.noCleanup {
		defer service.ReleaseAll()
	}

	// A directory argument means a batch run; anything else is treated as
	// a single image so missing paths surface as error results.
	dir := opts.batchDir
	input := opts.input
	if dir == "" && input != "" {
		if info, err := os.Stat(input); err == nil && info.IsDir() {
			dir, input = input, ""
		}
	}

	if dir == "" {
		if opts.xlsxPath != "" || opts.htmlPath != "" {
			slog.Warn("Spreadsheet and HTML reports apply to batch runs only, skipping")
		}
		return emit(service.RecognizeFile(ctx, input), opts.output)
	}

	report, err := service.RecognizeDirectory(ctx, dir, opts.pattern)
	if err != nil {
		return err
	}

	if opts.xlsxPath != "" {
		if err := ocr.WriteXLSX(report, opts.xlsxPath); err != nil {
			return err
		}
		slog.Info("Spreadsheet written", "path", opts.xlsxPath)
	}
	if opts.htmlPath != "" {
		if err := ocr.WriteHTML(report, opts.htmlPath); err != nil {
			return err
		}
		slog.Info("HTML report written", "path", opts.htmlPath)
	}

	return emit(report, opts.output)
}

// runCheck prints the dependency report and fails unless both engines are
// usable.
func runCheck(ctx context.Context, service *ocr.Service, verbose bool) error {
	check := service.CheckSystem(ctx, verbose)

	if check.Available {
		fmt.Fprintf(os.Stderr, "GPU: %s (%s)\n", check.Name, check.Kind)
	} else {
		fmt.Fprintln(os.Stderr, "GPU: not available, using CPU")
	}

	if err := writeJSON(os.Stdout, check); err != nil {
		return err
	}
	if !check.HybridReady {
		return ocr.ErrNotReady
	}
	return nil
}

// emit writes v as indented JSON to stdout or, when path is set, to a file.
func emit(v any, path string) error {
	if path == "" {
		return writeJSON(os.Stdout, v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := writeJSON(f, v); err != nil {
		return err
	}
	slog.Info("Results written", "path", path)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
