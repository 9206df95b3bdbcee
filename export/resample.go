package export

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/wudi/redactkit/settings"
)

// PageHeightInches is the physical page height assumed when mapping a
// quality tier's DPI to a pixel height.
const PageHeightInches = 11.7

// TargetHeight is the pixel height for dpi, or 0 when the tier keeps the
// original resolution.
func TargetHeight(dpi int) int {
	if dpi <= 0 {
		return 0
	}
	return int(math.Round(PageHeightInches * float64(dpi)))
}

// Prepare converts a flattened page to opaque RGB and downscales it to the
// tier's target height. Images already at or below the target keep their
// size; this path never upscales.
func Prepare(img image.Image, q settings.Quality) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if target := TargetHeight(q.DPI()); target > 0 && h > target {
		scale := float64(target) / float64(h)
		w = max(1, int(math.Round(float64(w)*scale)))
		h = target
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Rect, image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Rect, img, b, draw.Over, nil)
	return dst
}
