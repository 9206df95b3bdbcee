package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/settings"
	"github.com/wudi/redactkit/writer"
)

// PageRequest is one flattened page handed to a PageProcessor.
type PageRequest struct {
	Index    int
	Image    image.Image
	Size     model.Size
	Language string
	OCR      bool
	Quality  settings.Quality
}

// PageProcessor turns a flattened page into a complete single-page PDF.
type PageProcessor interface {
	ProcessPage(ctx context.Context, req PageRequest) ([]byte, error)
	AvailableLanguages(ctx context.Context) ([]string, error)
}

// TextLayerProcessor recognizes words with Engine when OCR is requested and
// writes the page image with an invisible text layer over it. Tuning is
// applied to every recognition input.
type TextLayerProcessor struct {
	Engine Engine
	Tuning []InputOption
	Logger observability.Logger
}

// NewTextLayerProcessor uses DefaultEngine when engine is nil.
func NewTextLayerProcessor(engine Engine, logger observability.Logger) *TextLayerProcessor {
	return &TextLayerProcessor{Engine: engine, Logger: observability.OrNop(logger)}
}

func (p *TextLayerProcessor) engine() Engine {
	if p.Engine != nil {
		return p.Engine
	}
	return DefaultEngine()
}

func (p *TextLayerProcessor) ProcessPage(ctx context.Context, req PageRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var words []writer.Word
	if req.OCR {
		var err error
		if words, err = p.recognize(ctx, req); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	opts := writer.PageOptions{Width: req.Size.Width, Height: req.Size.Height, JPEGQuality: req.Quality.JPEGQuality()}
	if err := writer.WritePage(&buf, req.Image, words, opts); err != nil {
		return nil, fmt.Errorf("page %d: %w", req.Index, err)
	}
	return buf.Bytes(), nil
}

func (p *TextLayerProcessor) recognize(ctx context.Context, req PageRequest) ([]writer.Word, error) {
	langs := (settings.Settings{OCRLanguage: req.Language}).Languages()
	opts := append([]InputOption{WithLanguages(langs...), WithDPI(req.Quality.DPI()), WithPageSegmentation(SegmentAuto)}, p.Tuning...)
	in, err := InputFromImage(req.Image, req.Index, opts...)
	if err != nil {
		return nil, err
	}
	eng := p.engine()
	res, err := eng.Recognize(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("recognize page %d with %s: %w", req.Index, eng.Name(), err)
	}
	found := res.Words()
	observability.OrNop(p.Logger).Debug("page recognized",
		observability.Int("page", req.Index),
		observability.String("engine", eng.Name()),
		observability.Int("words", len(found)))
	words := make([]writer.Word, 0, len(found))
	for _, w := range found {
		words = append(words, writer.Word{Text: w.Text, X: w.Bounds.X, Y: w.Bounds.Y, Width: w.Bounds.Width, Height: w.Bounds.Height})
	}
	return words, nil
}

// AvailableLanguages asks the engine for its installed models. Engines that
// cannot list them report none.
func (p *TextLayerProcessor) AvailableLanguages(ctx context.Context) ([]string, error) {
	if l, ok := p.engine().(LanguageLister); ok {
		return l.AvailableLanguages(ctx)
	}
	return nil, nil
}
