// Package ocr defines the OCR collaborator: small engine interfaces that
// recognize words on a page image, and the page processor that turns a
// flattened page into a searchable single-page PDF.
package ocr

import "context"

// ImageFormat is the MIME type of an encoded Input image.
type ImageFormat string

const ImageFormatPNG ImageFormat = "image/png"

// Region is a pixel rectangle with the origin at the top-left of the page
// image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is one encoded page image submitted for recognition.
type Input struct {
	// ID is echoed back in Result.InputID.
	ID        string
	Image     []byte
	Format    ImageFormat
	PageIndex int
	// DPI is the effective resolution of Image; zero means unknown.
	DPI int
	// Languages are trained-data codes such as "eng" or "deu", in priority
	// order.
	Languages []string
	// Region limits recognition to part of the image. Word bounds in the
	// Result stay in full-image coordinates.
	Region *Region
	// Metadata carries engine-specific variables. See WithPageSegmentation.
	Metadata map[string]string
}

// TextWord is one recognized token with its confidence in 0..1.
type TextWord struct {
	Text       string
	Bounds     Region
	Confidence float64
}

type TextLine struct {
	Text       string
	Bounds     Region
	Words      []TextWord
	Confidence float64
}

type TextBlock struct {
	Text       string
	Bounds     Region
	Lines      []TextLine
	Confidence float64
}

// Result is the recognition output for one Input.
type Result struct {
	InputID   string
	PlainText string
	Blocks    []TextBlock
}

// Words flattens every recognized word of the result, in reading order.
func (r Result) Words() []TextWord {
	var out []TextWord
	for _, b := range r.Blocks {
		for _, l := range b.Lines {
			out = append(out, l.Words...)
		}
	}
	return out
}

// Engine recognizes one page image at a time.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// LanguageLister is implemented by engines that can report their installed
// language models.
type LanguageLister interface {
	AvailableLanguages(ctx context.Context) ([]string, error)
}
