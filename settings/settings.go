// Package settings holds the process-wide configuration record, its
// validation rules and the stores that persist it.
package settings

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

// FillColor is the closed set of redaction fill colors.
type FillColor string

const (
	ColorBlack FillColor = "black"
	ColorWhite FillColor = "white"
	ColorRed   FillColor = "red"
	ColorGreen FillColor = "green"
)

// FillColors lists the supported fill colors.
var FillColors = []FillColor{ColorBlack, ColorWhite, ColorRed, ColorGreen}

func (c FillColor) Valid() bool {
	for _, v := range FillColors {
		if c == v {
			return true
		}
	}
	return false
}

// Quality is the export quality tier.
type Quality string

const (
	QualityScreen   Quality = "screen"
	QualityEbook    Quality = "ebook"
	QualityPrinter  Quality = "printer"
	QualityPrepress Quality = "prepress"
)

var Qualities = []Quality{QualityScreen, QualityEbook, QualityPrinter, QualityPrepress}

func (q Quality) Valid() bool {
	for _, v := range Qualities {
		if q == v {
			return true
		}
	}
	return false
}

// DPI is the export target resolution. Zero means keep the original.
func (q Quality) DPI() int {
	switch q {
	case QualityScreen:
		return 96
	case QualityEbook:
		return 150
	case QualityPrinter:
		return 300
	default:
		return 0
	}
}

// JPEGQuality is the compression level used when encoding page images.
func (q Quality) JPEGQuality() int {
	switch q {
	case QualityScreen:
		return 60
	case QualityEbook:
		return 75
	case QualityPrinter:
		return 85
	default:
		return 95
	}
}

// ParseQuality resolves a tier name, case-insensitively.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if !q.Valid() {
		return "", fmt.Errorf("%w: unknown output quality %q", ErrInvalid, s)
	}
	return q, nil
}

const (
	MinZoom = 10
	MaxZoom = 400
)

// Settings is the persisted configuration record.
type Settings struct {
	FillColor           FillColor `json:"fill_color"`
	OutputQuality       Quality   `json:"output_quality"`
	OCREnabled          bool      `json:"ocr_enabled"`
	OCRLanguage         string    `json:"ocr_language"`
	HistoryLength       int       `json:"history_length"`
	ZoomLevel           int       `json:"zoom_level"`
	UITheme             string    `json:"ui_theme"`
	LastOpenedDirectory string    `json:"last_opened_directory"`
	AutoSaveWorkFiles   bool      `json:"auto_save_work_files"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		FillColor:         ColorBlack,
		OutputQuality:     QualityEbook,
		OCREnabled:        true,
		OCRLanguage:       "eng",
		HistoryLength:     30,
		ZoomLevel:         100,
		UITheme:           "default",
		AutoSaveWorkFiles: true,
	}
}

// Validate checks every field against its legal range.
func (s Settings) Validate() error {
	var errs []error
	if !s.FillColor.Valid() {
		errs = append(errs, fmt.Errorf("fill_color %q not in %v", s.FillColor, FillColors))
	}
	if !s.OutputQuality.Valid() {
		errs = append(errs, fmt.Errorf("output_quality %q not in %v", s.OutputQuality, Qualities))
	}
	if s.HistoryLength < 0 {
		errs = append(errs, fmt.Errorf("history_length %d must be >= 0", s.HistoryLength))
	}
	if s.ZoomLevel < MinZoom || s.ZoomLevel > MaxZoom {
		errs = append(errs, fmt.Errorf("zoom_level %d outside %d..%d", s.ZoomLevel, MinZoom, MaxZoom))
	}
	if s.OCREnabled && len(s.Languages()) == 0 {
		errs = append(errs, errors.New("ocr_language is required when OCR is enabled"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Languages splits OCRLanguage ("eng+deu") into language codes.
func (s Settings) Languages() []string {
	var out []string
	for _, l := range strings.Split(s.OCRLanguage, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ClampZoom bounds a zoom percentage to MinZoom..MaxZoom.
func ClampZoom(z int) int {
	return min(max(z, MinZoom), MaxZoom)
}
