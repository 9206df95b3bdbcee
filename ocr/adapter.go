package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// InputOption mutates an OCR input generated from a page image.
type InputOption func(*Input)

// WithLanguages sets the trained-data codes to load, in priority order.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithRegion limits recognition to region. An empty region means the whole
// page.
func WithRegion(region Region) InputOption {
	return func(in *Input) {
		if region.IsEmpty() {
			in.Region = nil
			return
		}
		in.Region = &region
	}
}

// WithDPI records the effective resolution of the page image.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// InputFromImage PNG-encodes a page raster into an OCR input whose ID is
// derived from the page index.
func InputFromImage(img image.Image, pageIndex int, opts ...InputOption) (Input, error) {
	if img == nil || img.Bounds().Empty() {
		return Input{}, fmt.Errorf("page %d: empty image", pageIndex)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return Input{}, fmt.Errorf("encode page %d: %w", pageIndex, err)
	}
	in := Input{
		ID:        fmt.Sprintf("page-%d", pageIndex),
		Image:     buf.Bytes(),
		Format:    ImageFormatPNG,
		PageIndex: pageIndex,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
