// Package transform applies destructive geometric edits to a page raster.
// Both operations drop the page's rectangles; callers snapshot the page with
// the history manager first.
package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/wudi/redactkit/model"
)

// Background fills canvas exposed by a rotation.
var Background color.Color = color.White

// PaperSize is a standard sheet in millimetres, portrait orientation.
type PaperSize struct {
	Name     string
	WidthMM  float64
	HeightMM float64
}

// A4 is ISO 216 A4.
var A4 = PaperSize{Name: "a4", WidthMM: 210, HeightMM: 297}

// Pixels returns the sheet size at dpi, portrait or landscape.
func (p PaperSize) Pixels(dpi float64, landscape bool) (int, int) {
	w := int(math.Round(p.WidthMM / 25.4 * dpi))
	h := int(math.Round(p.HeightMM / 25.4 * dpi))
	if landscape {
		return h, w
	}
	return w, h
}

// CropPolicy controls the snap-to-paper step after a crop. A crop whose
// aspect ratio is within Tolerance (relative) of a paper size is resampled to
// that paper's pixel size at DPI.
type CropPolicy struct {
	Tolerance float64
	DPI       float64
	Papers    []PaperSize
	Filter    imaging.ResampleFilter
}

// DefaultCropPolicy snaps to A4 at 300 DPI within 5%.
var DefaultCropPolicy = CropPolicy{
	Tolerance: 0.05,
	DPI:       300,
	Papers:    []PaperSize{A4},
	Filter:    imaging.Lanczos,
}

// Match returns the target pixel size for a w×h crop, if any paper matches.
func (p CropPolicy) Match(w, h int) (int, int, bool) {
	if w <= 0 || h <= 0 || p.DPI <= 0 {
		return 0, 0, false
	}
	ratio := float64(w) / float64(h)
	for _, paper := range p.Papers {
		for _, landscape := range []bool{false, true} {
			tw, th := paper.Pixels(p.DPI, landscape)
			target := float64(tw) / float64(th)
			if math.Abs(ratio-target)/target <= p.Tolerance {
				return tw, th, true
			}
		}
	}
	return 0, 0, false
}

// Transformer rotates and crops document pages.
type Transformer struct {
	Policy CropPolicy
}

func New(policy CropPolicy) *Transformer { return &Transformer{Policy: policy} }

// Rotate turns the page raster counter-clockwise by degrees, growing the
// canvas to fit and filling new area with Background.
func (t *Transformer) Rotate(doc *model.Document, pageIndex int, degrees float64) bool {
	page, ok := doc.Page(pageIndex)
	if !ok || !page.HasImage() {
		return false
	}
	page.ReplaceImage(imaging.Rotate(page.Image(), degrees, Background))
	return true
}

// Crop clamps (x, y, width, height) to the raster and crops. The page is
// untouched when the clamped area is empty.
func (t *Transformer) Crop(doc *model.Document, pageIndex, x, y, width, height int) bool {
	page, ok := doc.Page(pageIndex)
	if !ok || !page.HasImage() {
		return false
	}
	b := page.Image().Bounds()
	x = max(x, 0)
	y = max(y, 0)
	width = min(width, b.Dx()-x)
	height = min(height, b.Dy()-y)
	if width <= 0 || height <= 0 {
		return false
	}
	area := image.Rect(x, y, x+width, y+height).Add(b.Min)
	cropped := imaging.Crop(page.Image(), area)
	if cropped.Rect.Empty() {
		return false
	}
	ux, uy, sized := page.UnitsPerPixel()
	if tw, th, ok := t.Policy.Match(width, height); ok {
		cropped = imaging.Resize(cropped, tw, th, t.Policy.Filter)
	}
	page.ReplaceImage(cropped)
	if sized {
		// The page keeps the physical extent of the cropped area.
		page.Size = model.Size{Width: float64(width) * ux, Height: float64(height) * uy}
	}
	return true
}

var defaultTransformer = New(DefaultCropPolicy)

// Rotate uses DefaultCropPolicy's transformer.
func Rotate(doc *model.Document, pageIndex int, degrees float64) bool {
	return defaultTransformer.Rotate(doc, pageIndex, degrees)
}

// Crop uses DefaultCropPolicy.
func Crop(doc *model.Document, pageIndex, x, y, width, height int) bool {
	return defaultTransformer.Crop(doc, pageIndex, x, y, width, height)
}
