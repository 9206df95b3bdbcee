package model

import (
	"image"
	"image/draw"

	"github.com/wudi/redactkit/idgen"
)

// Size is a page size in source units: PDF points for PDF pages, pixels for
// image files.
type Size struct {
	Width  float64
	Height float64
}

// Page is one rendered source page and its redaction rectangles. The raster
// is exclusively owned by the page.
type Page struct {
	ID     string
	Number int
	Size   Size

	image      *image.NRGBA
	rectangles []Rectangle
}

// NewPage creates a page that takes ownership of img.
func NewPage(number int, img *image.NRGBA, size Size) *Page {
	return &Page{ID: idgen.Default(), Number: number, Size: size, image: img}
}

// Image returns the page raster. Callers must not modify it; use Flatten or
// CloneImage for a private copy.
func (p *Page) Image() *image.NRGBA { return p.image }

// HasImage reports whether the page carries a raster.
func (p *Page) HasImage() bool { return p.image != nil && !p.image.Rect.Empty() }

// CloneImage returns an independent copy of the page raster, or nil.
func (p *Page) CloneImage() *image.NRGBA { return cloneNRGBA(p.image) }

// ReplaceImage installs a new raster and drops every rectangle: coordinates
// drawn against the previous raster no longer describe the same content.
// Size is rescaled so each pixel keeps its size in source units.
func (p *Page) ReplaceImage(img *image.NRGBA) {
	if ux, uy, ok := p.UnitsPerPixel(); ok && img != nil {
		p.Size = Size{Width: float64(img.Rect.Dx()) * ux, Height: float64(img.Rect.Dy()) * uy}
	}
	p.image = img
	p.rectangles = nil
}

// UnitsPerPixel is the source-unit size of one raster pixel on each axis.
func (p *Page) UnitsPerPixel() (float64, float64, bool) {
	if !p.HasImage() || p.Size.Width <= 0 || p.Size.Height <= 0 {
		return 0, 0, false
	}
	return p.Size.Width / float64(p.image.Rect.Dx()), p.Size.Height / float64(p.image.Rect.Dy()), true
}

// Restore resets the raster, size and rectangle list to previously captured
// values. img and rects are adopted, not copied.
func (p *Page) Restore(img *image.NRGBA, size Size, rects []Rectangle) {
	p.image = img
	p.Size = size
	p.rectangles = rects
}

func (p *Page) AddRectangle(r Rectangle) {
	p.rectangles = append(p.rectangles, r)
}

// RemoveRectangle deletes the rectangle with the given id.
func (p *Page) RemoveRectangle(id string) bool {
	i := p.index(id)
	if i < 0 {
		return false
	}
	p.rectangles = append(p.rectangles[:i], p.rectangles[i+1:]...)
	return true
}

// Rectangle looks up a rectangle by id.
func (p *Page) Rectangle(id string) (Rectangle, bool) {
	i := p.index(id)
	if i < 0 {
		return Rectangle{}, false
	}
	return p.rectangles[i], true
}

// ReplaceRectangle swaps in r for the entry with the same id, keeping its
// position in the z-order.
func (p *Page) ReplaceRectangle(r Rectangle) bool {
	i := p.index(r.ID)
	if i < 0 {
		return false
	}
	p.rectangles[i] = r
	return true
}

// ClearRectangles removes every rectangle and returns how many were removed.
func (p *Page) ClearRectangles() int {
	n := len(p.rectangles)
	p.rectangles = nil
	return n
}

// PopRectangle removes the most recently added rectangle.
func (p *Page) PopRectangle() bool {
	if len(p.rectangles) == 0 {
		return false
	}
	p.rectangles = p.rectangles[:len(p.rectangles)-1]
	return true
}

// Rectangles returns a copy of the rectangle list in z-order.
func (p *Page) Rectangles() []Rectangle {
	return append([]Rectangle(nil), p.rectangles...)
}

func (p *Page) RectangleCount() int { return len(p.rectangles) }

// RectanglesByArea returns the rectangles whose area is at least minArea.
func (p *Page) RectanglesByArea(minArea float64) []Rectangle {
	var out []Rectangle
	for _, r := range p.rectangles {
		if r.Area() >= minArea {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a deep copy of the page, raster included.
func (p *Page) Clone() *Page {
	return &Page{
		ID:         p.ID,
		Number:     p.Number,
		Size:       p.Size,
		image:      cloneNRGBA(p.image),
		rectangles: p.Rectangles(),
	}
}

func (p *Page) index(id string) int {
	for i, r := range p.rectangles {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	if src == nil {
		return nil
	}
	dst := image.NewNRGBA(src.Rect)
	draw.Draw(dst, dst.Rect, src, src.Rect.Min, draw.Src)
	return dst
}

// ToNRGBA converts any image into a freshly allocated *image.NRGBA whose
// bounds start at the origin.
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}
