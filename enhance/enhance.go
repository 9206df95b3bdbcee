// Package enhance implements the scan clean-up pipeline applied to page
// rasters on load: unpaper, brightness and contrast, auto-level, deskew,
// denoise and sharpness, in that order.
package enhance

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/wudi/redactkit/observability"
)

// Config selects the enhancement steps. Brightness, Contrast and Sharpness
// are factors where 1 leaves the image unchanged.
type Config struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Brightness  float64 `json:"brightness" yaml:"brightness"`
	Contrast    float64 `json:"contrast" yaml:"contrast"`
	Sharpness   float64 `json:"sharpness" yaml:"sharpness"`
	AutoLevel   bool    `json:"auto_level" yaml:"auto_level"`
	Deskew      bool    `json:"deskew" yaml:"deskew"`
	Denoise     bool    `json:"denoise" yaml:"denoise"`
	Unpaper     bool    `json:"unpaper" yaml:"unpaper"`
	PaperFormat string  `json:"paper_format" yaml:"paper_format"`
}

// DefaultConfig is disabled; when enabled it auto-levels, deskews and
// denoises without changing brightness, contrast or sharpness.
func DefaultConfig() Config {
	return Config{
		Brightness:  1,
		Contrast:    1,
		Sharpness:   1,
		AutoLevel:   true,
		Deskew:      true,
		Denoise:     true,
		PaperFormat: "a4",
	}
}

// Enhancer is the collaborator contract used by the loader.
type Enhancer interface {
	Apply(img *image.NRGBA, cfg Config) *image.NRGBA
}

// Pipeline is the default Enhancer. Apply never modifies its input and
// returns the input unchanged when cfg is disabled.
type Pipeline struct {
	Unpaper *Unpaper
	Logger  observability.Logger
}

func NewPipeline(logger observability.Logger) *Pipeline {
	return &Pipeline{Unpaper: NewUnpaper(), Logger: observability.OrNop(logger)}
}

func (p *Pipeline) Apply(img *image.NRGBA, cfg Config) *image.NRGBA {
	if img == nil || !cfg.Enabled {
		return img
	}
	log := observability.OrNop(p.Logger)
	out := img
	if cfg.Unpaper && p.Unpaper != nil {
		cleaned, err := p.Unpaper.Process(out, cfg.PaperFormat)
		if err != nil {
			log.Warn("unpaper skipped", observability.Error("error", err))
		} else {
			out = cleaned
		}
	}
	if cfg.Brightness != 1 && cfg.Brightness > 0 {
		out = Brightness(out, cfg.Brightness)
	}
	if cfg.Contrast != 1 && cfg.Contrast > 0 {
		out = Contrast(out, cfg.Contrast)
	}
	if cfg.AutoLevel {
		out = AutoLevel(out)
	}
	if cfg.Deskew {
		if angle, ok := SkewAngle(out); ok {
			log.Debug("deskew", observability.Float("angle", angle))
			out = imaging.Rotate(out, angle, color.White)
		}
	}
	if cfg.Denoise {
		out = Denoise(out)
	}
	if cfg.Sharpness != 1 && cfg.Sharpness > 0 {
		out = Sharpness(out, cfg.Sharpness)
	}
	if out == img {
		return imaging.Clone(img)
	}
	return out
}

// Brightness scales every channel by factor.
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: clamp(float64(c.R) * factor), G: clamp(float64(c.G) * factor), B: clamp(float64(c.B) * factor), A: c.A}
	})
}

// Contrast stretches channels around mid-grey by factor.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustContrast(img, math.Max(-100, math.Min(100, (factor-1)*100)))
}

// Sharpness sharpens for factors above 1 and softens below.
func Sharpness(img image.Image, factor float64) *image.NRGBA {
	if factor > 1 {
		return imaging.Sharpen(img, factor-1)
	}
	return imaging.Blur(img, 1-factor)
}

// AutoLevel stretches luminance so the darkest and brightest 1% of pixels
// map to black and white.
func AutoLevel(img image.Image) *image.NRGBA {
	hist := imaging.Histogram(img)
	lo, hi := percentile(hist, 0.01), percentile(hist, 0.99)
	if hi <= lo {
		return imaging.Clone(img)
	}
	scale := 255 / float64(hi-lo)
	level := func(v uint8) uint8 { return clamp((float64(v) - float64(lo)) * scale) }
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: level(c.R), G: level(c.G), B: level(c.B), A: c.A}
	})
}

func percentile(hist [256]float64, p float64) int {
	var sum float64
	for i, v := range hist {
		sum += v
		if sum >= p {
			return i
		}
	}
	return 255
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
