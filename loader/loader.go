// Package loader builds a Document from a PDF or image file, one page per
// source page.
package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/wudi/redactkit/enhance"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/raster"
)

// ErrUnsupported is returned for files that are neither PDFs nor images.
var ErrUnsupported = errors.New("unsupported document type")

// DefaultScale renders PDF pages at 144 DPI.
const DefaultScale = 2

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// Kind classifies a path by extension, falling back to the PDF magic bytes.
func Kind(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return "pdf", nil
	case imageExts[ext]:
		return "image", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, 5)
	if n, _ := f.Read(head); n == 5 && string(head) == "%PDF-" {
		return "pdf", nil
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

// ProgressFunc receives monotonically increasing percentages and a stage
// description.
type ProgressFunc func(percent int, stage string)

// Loader rasterizes documents. Enhancement runs on every page when
// Enhancement.Enabled is set.
type Loader struct {
	Rasterizer  raster.Rasterizer
	Enhancer    enhance.Enhancer
	Enhancement enhance.Config
	Scale       float64
	Logger      observability.Logger
	Tracer      observability.Tracer
}

type Option func(*Loader)

func WithRasterizer(r raster.Rasterizer) Option { return func(l *Loader) { l.Rasterizer = r } }

func WithEnhancement(e enhance.Enhancer, cfg enhance.Config) Option {
	return func(l *Loader) { l.Enhancer, l.Enhancement = e, cfg }
}

func WithScale(scale float64) Option { return func(l *Loader) { l.Scale = scale } }

func WithLogger(logger observability.Logger) Option { return func(l *Loader) { l.Logger = logger } }

func WithTracer(t observability.Tracer) Option { return func(l *Loader) { l.Tracer = t } }

func New(opts ...Option) *Loader {
	l := &Loader{Scale: DefaultScale}
	for _, opt := range opts {
		opt(l)
	}
	if l.Rasterizer == nil {
		l.Rasterizer = raster.NewPoppler()
	}
	l.Logger = observability.OrNop(l.Logger)
	l.Tracer = observability.TracerOrNop(l.Tracer)
	return l
}

// Load reads path into a new Document. On cancellation or failure no
// partial document is returned.
func (l *Loader) Load(ctx context.Context, path string, progress ProgressFunc) (doc *model.Document, err error) {
	ctx, span := observability.TracerOrNop(l.Tracer).StartSpan(ctx, "loader.load")
	span.SetTag("path", path)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	report := monotonic(progress)
	report(0, "Opening "+filepath.Base(path))
	kind, err := Kind(path)
	if err != nil {
		return nil, err
	}
	log := observability.OrNop(l.Logger).With(observability.String("path", path))

	doc = model.NewDocument(path)
	switch kind {
	case "image":
		img, size, err := raster.DecodeImageFile(path)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(50, "Processing image")
		doc.AddPage(model.NewPage(0, l.enhance(img), size))
	case "pdf":
		n, err := l.Rasterizer.PageCount(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("open pdf: no pages")
		}
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				log.Info("load canceled", observability.Int("pages_done", i))
				return nil, ctx.Err()
			default:
			}
			report(i*100/n, fmt.Sprintf("Rendering page %d of %d", i+1, n))
			page, err := l.renderPage(ctx, path, i)
			if err != nil {
				return nil, err
			}
			doc.AddPage(page)
		}
	}
	report(100, "Loaded")
	log.Info("document loaded", observability.Int("pages", doc.PageCount()))
	return doc, nil
}

func (l *Loader) renderPage(ctx context.Context, path string, i int) (*model.Page, error) {
	ctx, span := observability.TracerOrNop(l.Tracer).StartSpan(ctx, "loader.page")
	defer span.Finish()
	span.SetTag("page", i+1)
	img, size, err := l.Rasterizer.Render(ctx, path, i, l.scale())
	if err != nil {
		err = fmt.Errorf("render page %d: %w", i+1, err)
		span.SetError(err)
		return nil, err
	}
	return model.NewPage(i, l.enhance(img), size), nil
}

func (l *Loader) scale() float64 {
	if l.Scale <= 0 {
		return DefaultScale
	}
	return l.Scale
}

func (l *Loader) enhance(img *image.NRGBA) *image.NRGBA {
	if l.Enhancer == nil || !l.Enhancement.Enabled {
		return img
	}
	return l.Enhancer.Apply(img, l.Enhancement)
}

func monotonic(fn ProgressFunc) func(int, string) {
	last := -1
	return func(p int, stage string) {
		if fn == nil {
			return
		}
		p = min(max(p, last, 0), 100)
		last = p
		fn(p, stage)
	}
}
