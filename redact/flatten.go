package redact

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/wudi/redactkit/model"
)

// FallbackColor fills rectangles whose color string cannot be parsed.
var FallbackColor = color.NRGBA{A: 255}

// Flatten burns every rectangle of the page, filled and opaque, into a copy
// of its raster. The page itself is not modified. A page without a raster
// yields nil.
func Flatten(page *model.Page) *image.NRGBA {
	if page == nil || !page.HasImage() {
		return nil
	}
	return Burn(page.Image(), page.Rectangles())
}

// Burn draws rects, in order, onto a copy of src.
func Burn(src *image.NRGBA, rects []model.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	draw.Draw(dst, dst.Rect, src, src.Rect.Min, draw.Src)
	for _, r := range rects {
		area := r.Bounds().Intersect(dst.Rect)
		if area.Empty() {
			continue
		}
		c, err := model.ParseColor(r.Color)
		if err != nil {
			c = FallbackColor
		}
		draw.Draw(dst, area, image.NewUniform(c), image.Point{}, draw.Src)
	}
	return dst
}
