// Package builder provides a fluent API for composing scanned-page PDFs:
// a raster image per page with optional positioned text over it.
package builder

import (
	"fmt"

	"github.com/wudi/redactkit/contentstream"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultFont is the resource name of the built-in Helvetica font.
const DefaultFont = "F1"

// PDFBuilder collects pages and produces a Document.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	Build() (*Document, error)
}

// PageBuilder appends drawing operations to one page.
type PageBuilder interface {
	DrawImage(img *Image, x, y, width, height float64) PageBuilder
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	Finish() PDFBuilder
}

// TextOptions configures text drawing. HorizScaling is a percentage; zero
// and 100 leave glyphs unscaled.
type TextOptions struct {
	Font         string
	FontSize     float64
	RenderMode   contentstream.TextRenderMode
	HorizScaling float64
}

// Rectangle is a page box in points.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Font is a standard Type1 font referenced by name.
type Font struct {
	BaseFont string
	Encoding string
}

// Resources are the named objects a page's content refers to.
type Resources struct {
	Fonts    map[string]*Font
	XObjects map[string]*Image
}

// Page is a built page ready for serialization.
type Page struct {
	MediaBox   Rectangle
	Resources  Resources
	Operations []contentstream.Operation
}

// Document is the builder's output.
type Document struct {
	Pages []*Page
}

var standardFonts = map[string]*Font{
	DefaultFont: {BaseFont: "Helvetica", Encoding: "WinAnsiEncoding"},
}

type builderImpl struct {
	pages []*Page
	err   error
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *Page
	images int
}

func NewBuilder() PDFBuilder { return &builderImpl{} }

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	if (w <= 0 || h <= 0) && b.err == nil {
		b.err = fmt.Errorf("page %d: invalid size %gx%g", len(b.pages)+1, w, h)
	}
	p := &Page{MediaBox: Rectangle{URX: w, URY: h}}
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p}
}

func (b *builderImpl) Build() (*Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.pages) == 0 {
		return nil, fmt.Errorf("build: no pages")
	}
	return &Document{Pages: b.pages}, nil
}

func (p *pageBuilderImpl) DrawImage(img *Image, x, y, width, height float64) PageBuilder {
	if img == nil {
		return p
	}
	if p.page.Resources.XObjects == nil {
		p.page.Resources.XObjects = make(map[string]*Image)
	}
	p.images++
	name := fmt.Sprintf("Im%d", p.images-1)
	p.page.Resources.XObjects[name] = img
	if width == 0 {
		width = float64(img.Width)
	}
	if height == 0 {
		height = float64(img.Height)
	}
	n := func(f float64) contentstream.Operand { return contentstream.Number(f) }
	p.page.Operations = append(p.page.Operations,
		contentstream.Op("q"),
		contentstream.Op("cm", n(width), n(0), n(0), n(height), n(x), n(y)),
		contentstream.Op("Do", contentstream.Name(name)),
		contentstream.Op("Q"),
	)
	return p
}

var winAnsi = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

// DrawText places text with its baseline origin at x, y. Text the font's
// encoding cannot represent is substituted, and empty text is skipped.
func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	if text == "" {
		return p
	}
	fontName := opts.Font
	if fontName == "" {
		fontName = DefaultFont
	}
	font, ok := standardFonts[fontName]
	if !ok {
		if p.parent.err == nil {
			p.parent.err = fmt.Errorf("unknown font %q", fontName)
		}
		return p
	}
	encoded, err := winAnsi.String(text)
	if err != nil {
		return p
	}
	if p.page.Resources.Fonts == nil {
		p.page.Resources.Fonts = make(map[string]*Font)
	}
	p.page.Resources.Fonts[fontName] = font

	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	n := func(f float64) contentstream.Operand { return contentstream.Number(f) }
	ops := []contentstream.Operation{
		contentstream.Op("BT"),
		contentstream.Op("Tf", contentstream.Name(fontName), n(size)),
	}
	if opts.HorizScaling != 0 && opts.HorizScaling != 100 {
		ops = append(ops, contentstream.Op("Tz", n(opts.HorizScaling)))
	}
	if opts.RenderMode != contentstream.TextFill {
		ops = append(ops, contentstream.Op("Tr", n(float64(opts.RenderMode))))
	}
	ops = append(ops,
		contentstream.Op("Tm", n(1), n(0), n(0), n(1), n(x), n(y)),
		contentstream.Op("Tj", contentstream.String(encoded)),
		contentstream.Op("ET"),
	)
	p.page.Operations = append(p.page.Operations, ops...)
	return p
}

func (p *pageBuilderImpl) Finish() PDFBuilder { return p.parent }
