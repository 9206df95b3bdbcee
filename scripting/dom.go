package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/redact"
	"github.com/wudi/redactkit/transform"
)

// ModelDOM exposes a model.Document through the redaction engine. Scripts
// that omit a color get DefaultColor.
type ModelDOM struct {
	Doc          *model.Document
	Engine       *redact.Engine
	Transformer  *transform.Transformer
	DefaultColor string
	Logger       observability.Logger
	Messages     []string
}

// DOMOption customizes a ModelDOM.
type DOMOption func(*ModelDOM)

// WithTransformer makes rotate and crop use t, and so its crop policy.
func WithTransformer(t *transform.Transformer) DOMOption {
	return func(d *ModelDOM) {
		if t != nil {
			d.Transformer = t
		}
	}
}

func NewModelDOM(doc *model.Document, engine *redact.Engine, defaultColor string, logger observability.Logger, opts ...DOMOption) *ModelDOM {
	if engine == nil {
		engine = redact.NewEngine()
	}
	d := &ModelDOM{
		Doc:          doc,
		Engine:       engine,
		Transformer:  transform.New(transform.DefaultCropPolicy),
		DefaultColor: defaultColor,
		Logger:       observability.OrNop(logger),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ModelDOM) PageCount() int { return d.Doc.PageCount() }

func (d *ModelDOM) Page(index int) (PageProxy, error) {
	if _, ok := d.Doc.Page(index); !ok {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	return &pageProxy{dom: d, index: index}, nil
}

func (d *ModelDOM) Log(message string) {
	d.Messages = append(d.Messages, message)
	observability.OrNop(d.Logger).Info("script", observability.String("message", message))
}

type pageProxy struct {
	dom   *ModelDOM
	index int
}

func (p *pageProxy) page() *model.Page {
	page, _ := p.dom.Doc.Page(p.index)
	return page
}

func (p *pageProxy) Index() int { return p.index }

func (p *pageProxy) Width() int {
	if pg := p.page(); pg.HasImage() {
		return pg.Image().Bounds().Dx()
	}
	return 0
}

func (p *pageProxy) Height() int {
	if pg := p.page(); pg.HasImage() {
		return pg.Image().Bounds().Dy()
	}
	return 0
}

func (p *pageProxy) Add(x0, y0, x1, y1 float64, color string) string {
	if color == "" || color == "undefined" {
		color = p.dom.DefaultColor
	}
	r, ok := p.dom.Engine.Add(p.page(), model.Point{X: x0, Y: y0}, model.Point{X: x1, Y: y1}, color)
	if !ok {
		return ""
	}
	return r.ID
}

func (p *pageProxy) Remove(id string) bool { return p.dom.Engine.Remove(p.page(), id) }

func (p *pageProxy) Move(id string, dx, dy float64) bool {
	return p.dom.Engine.Move(p.page(), id, dx, dy)
}

func (p *pageProxy) Resize(id string, width, height float64) bool {
	return p.dom.Engine.Resize(p.page(), id, width, height)
}

func (p *pageProxy) Recolor(id, color string) bool { return p.dom.Engine.Recolor(p.page(), id, color) }

func (p *pageProxy) Clear() int { return p.dom.Engine.ClearAll(p.page()) }

func (p *pageProxy) Rectangles() []RectangleView {
	rects := p.page().Rectangles()
	out := make([]RectangleView, len(rects))
	for i, r := range rects {
		out[i] = RectangleView{ID: r.ID, X0: r.Start.X, Y0: r.Start.Y, X1: r.End.X, Y1: r.End.Y, Color: r.Color}
	}
	return out
}

func (p *pageProxy) Rotate(degrees float64) bool {
	return p.dom.Transformer.Rotate(p.dom.Doc, p.index, degrees)
}

func (p *pageProxy) Crop(x, y, width, height int) bool {
	return p.dom.Transformer.Crop(p.dom.Doc, p.index, x, y, width, height)
}

// DefaultTimeout bounds a batch script run by Run.
const DefaultTimeout = 2 * time.Minute

// Run executes script against doc on a fresh engine and returns the DOM so
// callers can read logged messages.
func Run(ctx context.Context, doc *model.Document, script, defaultColor string, logger observability.Logger, opts ...DOMOption) (*ModelDOM, error) {
	dom := NewModelDOM(doc, nil, defaultColor, logger, opts...)
	engine := NewEngine(WithTimeout(DefaultTimeout))
	if err := engine.RegisterDOM(dom); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}
	if _, err := engine.Execute(ctx, script); err != nil {
		return dom, fmt.Errorf("run script: %w", err)
	}
	return dom, nil
}
