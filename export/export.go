// Package export composes flattened pages into the final redacted PDF.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/ocr"
	"github.com/wudi/redactkit/redact"
	"github.com/wudi/redactkit/settings"
	"github.com/wudi/redactkit/writer"
)

// ErrNoPages is returned when no page could be written.
var ErrNoPages = errors.New("no pages to export")

// Options selects the quality tier and OCR. A failed page is replaced by a
// blank page of the same size unless OmitFailed is set, in which case the
// output is shorter than the document.
type Options struct {
	Quality    settings.Quality
	OCR        bool
	Language   string
	OmitFailed bool
}

// OptionsFrom takes the export options from settings.
func OptionsFrom(s settings.Settings) Options {
	return Options{Quality: s.OutputQuality, OCR: s.OCREnabled, Language: s.OCRLanguage}
}

// PageError records a page that could not be processed.
type PageError struct {
	Index int
	Err   error
}

func (e PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Index+1, e.Err) }

func (e PageError) Unwrap() error { return e.Err }

// Result summarizes a finished export.
type Result struct {
	Path    string
	Pages   int
	Skipped []PageError
}

// ProgressFunc receives monotonically increasing percentages and a stage
// description.
type ProgressFunc func(percent int, stage string)

// Exporter writes documents through a PageProcessor. Each page runs in an
// "export.page" span of Tracer.
type Exporter struct {
	Processor ocr.PageProcessor
	Logger    observability.Logger
	Tracer    observability.Tracer
}

func New(processor ocr.PageProcessor, logger observability.Logger) *Exporter {
	if processor == nil {
		processor = ocr.NewTextLayerProcessor(nil, logger)
	}
	return &Exporter{Processor: processor, Logger: observability.OrNop(logger), Tracer: observability.NopTracer()}
}

// WithTracer sets the tracer and returns e.
func (e *Exporter) WithTracer(t observability.Tracer) *Exporter {
	e.Tracer = observability.TracerOrNop(t)
	return e
}

// Export flattens, prepares and processes every page in order, then writes
// the concatenated PDF to dest atomically. On cancellation nothing is
// written and ctx.Err() is returned.
func (e *Exporter) Export(ctx context.Context, doc *model.Document, dest string, opts Options, progress ProgressFunc) (Result, error) {
	if opts.Quality == "" {
		opts.Quality = settings.QualityEbook
	}
	log := observability.OrNop(e.Logger).With(observability.String("dest", dest))
	last := -1
	report := func(p int, stage string) {
		if progress == nil || p < last {
			return
		}
		last = p
		progress(p, stage)
	}

	n := doc.PageCount()
	if n == 0 {
		return Result{}, ErrNoPages
	}
	res := Result{Path: dest}
	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			log.Info("export canceled", observability.Int("pages_done", i))
			return Result{}, ctx.Err()
		default:
		}
		report(i*90/n, fmt.Sprintf("Processing page %d of %d", i+1, n))
		page, _ := doc.Page(i)
		data, err := e.page(ctx, i, page, opts)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			log.Warn("page skipped", observability.Int("page", i+1), observability.Error("error", err))
			res.Skipped = append(res.Skipped, PageError{Index: i, Err: err})
			if opts.OmitFailed {
				continue
			}
			if data, err = placeholder(page); err != nil {
				continue
			}
		}
		pages = append(pages, data)
	}
	if len(pages) == 0 {
		return res, ErrNoPages
	}

	report(90, "Writing "+filepath.Base(dest))
	var out bytes.Buffer
	if err := writer.Merge(&out, pages); err != nil {
		return res, err
	}
	if err := writeAtomic(dest, out.Bytes()); err != nil {
		return res, err
	}
	res.Pages = len(pages)
	report(100, "Exported")
	log.Info("document exported", observability.Int("pages", res.Pages), observability.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (e *Exporter) page(ctx context.Context, i int, page *model.Page, opts Options) (data []byte, err error) {
	ctx, span := observability.TracerOrNop(e.Tracer).StartSpan(ctx, "export.page")
	span.SetTag("page", i+1)
	span.SetTag("rectangles", page.RectangleCount())
	span.SetTag("ocr", opts.OCR)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	flat := redact.Flatten(page)
	if flat == nil {
		return nil, errors.New("page has no image")
	}
	img := Prepare(flat, opts.Quality)
	return e.Processor.ProcessPage(ctx, ocr.PageRequest{
		Index:    i,
		Image:    img,
		Size:     pageSize(page),
		Language: opts.Language,
		OCR:      opts.OCR,
		Quality:  opts.Quality,
	})
}

func pageSize(page *model.Page) model.Size {
	if page.Size.Width > 0 && page.Size.Height > 0 {
		return page.Size
	}
	if page.HasImage() {
		b := page.Image().Bounds()
		return model.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
	// US Letter, for pages that carry neither a size nor an image.
	return model.Size{Width: 612, Height: 792}
}

func placeholder(page *model.Page) ([]byte, error) {
	size := pageSize(page)
	var buf bytes.Buffer
	if err := writer.WriteBlank(&buf, size.Width, size.Height); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}
