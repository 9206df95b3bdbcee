package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/wudi/redactkit/config"
	"github.com/wudi/redactkit/enhance"
	"github.com/wudi/redactkit/export"
	"github.com/wudi/redactkit/loader"
	"github.com/wudi/redactkit/observability"
	_ "github.com/wudi/redactkit/ocr/tesseract"
	"github.com/wudi/redactkit/plan"
	"github.com/wudi/redactkit/report"
	"github.com/wudi/redactkit/session"
	"github.com/wudi/redactkit/settings"
	"github.com/wudi/redactkit/tasks"
)

type options struct {
	input      string
	output     string
	configPath string
	envFile    string
	planPath   string
	scriptPath string
	reportPath string
	quality    string
	language   string
	ocr        *bool
	enhance    *bool
	quiet      bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "redact: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "redact: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: redact [flags] <input> <output.pdf>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&opts.envFile, "env", ".env", "Environment file with REDACT_* variables")
	flag.StringVar(&opts.planPath, "plan", "", "YAML redaction plan to apply")
	flag.StringVar(&opts.scriptPath, "script", "", "JavaScript batch edit to run after the plan")
	flag.StringVar(&opts.reportPath, "report", "", "Write a report (.html or .md)")
	flag.StringVar(&opts.quality, "quality", "", "Output quality: screen, ebook, printer or prepress")
	flag.StringVar(&opts.language, "lang", "", "OCR language code, e.g. eng or eng+deu")
	ocr := flag.Bool("ocr", false, "Add an OCR text layer")
	enh := flag.Bool("enhance", false, "Enhance scanned pages while loading")
	flag.BoolVar(&opts.quiet, "q", false, "Do not print progress")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ocr":
			opts.ocr = ocr
		case "enhance":
			opts.enhance = enh
		}
	})
	if flag.NArg() != 2 {
		flag.Usage()
		return options{}, fmt.Errorf("expected input and output paths")
	}
	opts.input, opts.output = flag.Arg(0), flag.Arg(1)
	if opts.quality != "" {
		if _, err := settings.ParseQuality(opts.quality); err != nil {
			return options{}, err
		}
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.enhance != nil {
		cfg.Enhance.Enabled = *opts.enhance
	}
	logger := cfg.Logger(os.Stderr)

	store, closeStore, err := cfg.SettingsStore()
	if err != nil {
		return err
	}
	defer closeStore()
	s := settings.LoadOrDefault(store, logger)
	if opts.quality != "" {
		s.OutputQuality = settings.Quality(opts.quality)
	}
	if opts.ocr != nil {
		s.OCREnabled = *opts.ocr
	}
	if opts.language != "" {
		s.OCRLanguage = opts.language
	}

	l := loader.New(
		loader.WithScale(cfg.Scale),
		loader.WithEnhancement(enhance.NewPipeline(logger), cfg.Enhance),
		loader.WithLogger(logger),
		loader.WithTracer(cfg.Tracer(logger)),
	)
	editor := session.New(
		session.WithSettings(s),
		session.WithLoader(l),
		session.WithWorkStore(cfg.WorkStore(logger)),
		session.WithExporter(export.New(nil, logger).WithTracer(cfg.Tracer(logger))),
		session.WithLogger(logger),
	)
	if err := editor.ApplySettings(s); err != nil {
		return err
	}

	var progress io.Writer = os.Stderr
	if opts.quiet {
		progress = nil
	}

	loaded := follow(editor.StartLoad(ctx, opts.input), progress)
	if loaded.Canceled {
		return errors.New("canceled")
	}
	if loaded.Err != nil {
		return fmt.Errorf("load %s: %w", opts.input, loaded.Err)
	}
	if n := editor.Adopt(loaded.Value); n > 0 {
		logger.Info("resumed work file", observability.Int("rectangles", n))
	}

	if opts.planPath != "" {
		p, err := plan.Load(opts.planPath)
		if err != nil {
			return err
		}
		sum, err := p.Apply(editor)
		if err != nil {
			return fmt.Errorf("apply plan: %w", err)
		}
		logger.Info("plan applied",
			observability.Int("pages", sum.Pages),
			observability.Int("rectangles", sum.Rectangles),
			observability.Int("rotated", sum.Rotated),
			observability.Int("cropped", sum.Cropped))
		src, err := p.ScriptSource()
		if err != nil {
			return err
		}
		if err := runScript(ctx, editor, src); err != nil {
			return err
		}
	}
	if opts.scriptPath != "" {
		data, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		if err := runScript(ctx, editor, string(data)); err != nil {
			return err
		}
	}

	h, err := editor.StartExport(ctx, opts.output)
	if err != nil {
		return err
	}
	exported := follow(h, progress)
	if exported.Canceled {
		return errors.New("canceled")
	}
	if exported.Err != nil {
		return fmt.Errorf("export: %w", exported.Err)
	}
	res := exported.Value
	for _, pe := range res.Skipped {
		fmt.Fprintf(os.Stderr, "redact: warning: %v\n", pe)
	}

	if editor.Settings().AutoSaveWorkFiles {
		if err := editor.Save(); err != nil {
			logger.Warn("work file not saved", observability.Error("error", err))
		}
	}
	if err := store.Save(editor.Settings()); err != nil {
		logger.Warn("settings not saved", observability.Error("error", err))
	}

	if opts.reportPath != "" {
		if err := writeReport(opts.reportPath, editor, &res); err != nil {
			return err
		}
	}
	fmt.Printf("%s: %d pages, %d redactions\n", res.Path, res.Pages, editor.Document().TotalRectangles())
	return nil
}

func runScript(ctx context.Context, editor *session.Editor, src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	if err := editor.RunScript(ctx, src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// follow prints progress lines to w until the task finishes.
func follow[T any](h *tasks.Handle[T], w io.Writer) tasks.Outcome[T] {
	for p := range h.Progress() {
		if w != nil {
			fmt.Fprintf(w, "%3d%% %s\n", p.Percent, p.Stage)
		}
	}
	return h.Wait()
}

func writeReport(path string, editor *session.Editor, res *export.Result) error {
	out := report.Build(editor.Document(), res)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		html, err := report.HTML(out)
		if err != nil {
			return err
		}
		out = html
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
