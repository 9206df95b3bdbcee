// Package writer serializes scanned-page PDFs: one JPEG image per page, an
// optional invisible text layer for search, and concatenation of single-page
// documents into one file.
package writer

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/wudi/redactkit/builder"
	"github.com/wudi/redactkit/contentstream"
)

// DefaultJPEGQuality is used when PageOptions.JPEGQuality is zero.
const DefaultJPEGQuality = 85

// Word is a recognized word in image pixel coordinates, origin top-left.
type Word struct {
	Text   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PageOptions controls page geometry and compression. A zero Width or Height
// sizes the page from the image at 72 DPI.
type PageOptions struct {
	Width       float64
	Height      float64
	JPEGQuality int
}

func (o PageOptions) mediaBox(img image.Image) (float64, float64) {
	w, h := o.Width, o.Height
	if w <= 0 || h <= 0 {
		b := img.Bounds()
		w, h = float64(b.Dx()), float64(b.Dy())
	}
	return w, h
}

// WritePage writes a complete single-page PDF showing img across the page,
// with words as invisible Helvetica text placed over their image positions.
func WritePage(w io.Writer, img image.Image, words []Word, opts PageOptions) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("write page: empty image")
	}
	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	xobj, err := builder.FromImage(img, quality)
	if err != nil {
		return fmt.Errorf("page image: %w", err)
	}
	pw, ph := opts.mediaBox(img)
	b := img.Bounds()

	pdf := builder.NewBuilder()
	page := pdf.NewPage(pw, ph).DrawImage(xobj, 0, 0, pw, ph)
	textLayer(page, words, pw/float64(b.Dx()), ph/float64(b.Dy()), ph)
	page.Finish()
	return write(pdf, w)
}

// WriteBlank writes a single empty white page of the given size in points.
func WriteBlank(w io.Writer, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("write blank page: invalid size %gx%g", width, height)
	}
	pdf := builder.NewBuilder()
	pdf.NewPage(width, height).Finish()
	return write(pdf, w)
}

func write(pdf builder.PDFBuilder, w io.Writer) error {
	doc, err := pdf.Build()
	if err != nil {
		return err
	}
	return Write(context.Background(), doc, w)
}

// textLayer draws words invisibly, each scaled horizontally to span its
// recognized box. sx and sy convert pixels to points.
func textLayer(page builder.PageBuilder, words []Word, sx, sy, pageHeight float64) {
	for _, word := range words {
		text := strings.TrimSpace(word.Text)
		if text == "" || word.Width <= 0 || word.Height <= 0 {
			continue
		}
		size := word.Height * sy
		// Helvetica averages roughly half an em per glyph.
		natural := size * 0.5 * float64(len([]rune(text)))
		scale := 100.0
		if natural > 0 {
			scale = 100 * word.Width * sx / natural
		}
		page.DrawText(text, word.X*sx, pageHeight-(word.Y+word.Height)*sy, builder.TextOptions{
			FontSize:     size,
			RenderMode:   contentstream.TextInvisible,
			HorizScaling: scale,
		})
	}
}
