package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

// Image is a DCT-encoded RGB image XObject.
type Image struct {
	Width            int
	Height           int
	ColorSpace       string
	BitsPerComponent int
	Filter           string
	Data             []byte
}

// FromImage flattens src onto white and encodes it as a baseline JPEG at
// the given quality.
func FromImage(src image.Image, quality int) (*Image, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	b := src.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgb, rgb.Rect, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Rect, src, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &Image{
		Width:            b.Dx(),
		Height:           b.Dy(),
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Filter:           "DCTDecode",
		Data:             buf.Bytes(),
	}, nil
}
