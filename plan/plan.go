// Package plan reads YAML redaction plans: per-page rotations, crops and
// rectangles applied to an editor without interaction.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/session"
	"github.com/wudi/redactkit/settings"
)

// Plan is a complete redaction recipe. Optional settings left empty keep
// the editor's values.
type Plan struct {
	Quality   string     `yaml:"quality"`
	OCR       *bool      `yaml:"ocr"`
	Language  string     `yaml:"language"`
	FillColor string     `yaml:"fill_color"`
	// Script is a JavaScript file run after the page edits. Relative paths
	// are resolved against the plan file's directory.
	Script string     `yaml:"script"`
	Pages  []PagePlan `yaml:"pages"`

	dir string
}

// PagePlan edits one page. Page is 1-based. Steps run in order: clear,
// rotate, crop, then rectangles, so rectangle coordinates refer to the
// transformed image.
type PagePlan struct {
	Page       int        `yaml:"page"`
	Clear      bool       `yaml:"clear"`
	Rotate     float64    `yaml:"rotate"`
	Crop       *CropBox   `yaml:"crop"`
	Rectangles []RectPlan `yaml:"rectangles"`
}

type CropBox struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type RectPlan struct {
	X0    float64 `yaml:"x0"`
	Y0    float64 `yaml:"y0"`
	X1    float64 `yaml:"x1"`
	Y1    float64 `yaml:"y1"`
	Color string  `yaml:"color"`
}

// Parse decodes and validates a plan.
func Parse(data []byte) (*Plan, error) {
	p := &Plan{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return p, p.Validate()
}

// Load reads a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// ScriptSource reads the plan's script. It returns "" when none is set.
func (p *Plan) ScriptSource() (string, error) {
	if p.Script == "" {
		return "", nil
	}
	path := p.Script
	if !filepath.IsAbs(path) && p.dir != "" {
		path = filepath.Join(p.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read plan script: %w", err)
	}
	return string(data), nil
}

// Validate checks enums, page numbers and colors.
func (p *Plan) Validate() error {
	var errs []error
	if p.Quality != "" {
		if _, err := settings.ParseQuality(p.Quality); err != nil {
			errs = append(errs, err)
		}
	}
	if p.FillColor != "" && !settings.FillColor(p.FillColor).Valid() {
		errs = append(errs, fmt.Errorf("fill_color %q not in %v", p.FillColor, settings.FillColors))
	}
	for i, pg := range p.Pages {
		if pg.Page < 1 {
			errs = append(errs, fmt.Errorf("pages[%d]: page must be >= 1", i))
		}
		if c := pg.Crop; c != nil && (c.Width <= 0 || c.Height <= 0) {
			errs = append(errs, fmt.Errorf("pages[%d]: crop width and height must be > 0", i))
		}
		for j, r := range pg.Rectangles {
			if r.Color == "" {
				continue
			}
			if _, err := model.ParseColor(r.Color); err != nil {
				errs = append(errs, fmt.Errorf("pages[%d].rectangles[%d]: %w", i, j, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Summary counts what Apply did.
type Summary struct {
	Pages      int
	Rectangles int
	Rotated    int
	Cropped    int
}

// Apply merges the plan's settings into the editor and performs every page
// edit through it, so each edit is undoable. Pages beyond the document are
// an error; nothing after the failing page is applied.
func (p *Plan) Apply(e *session.Editor) (Summary, error) {
	var sum Summary
	doc := e.Document()
	if doc == nil {
		return sum, session.ErrNoDocument
	}
	s := e.Settings()
	if p.Quality != "" {
		q, err := settings.ParseQuality(p.Quality)
		if err != nil {
			return sum, err
		}
		s.OutputQuality = q
	}
	if p.OCR != nil {
		s.OCREnabled = *p.OCR
	}
	if p.Language != "" {
		s.OCRLanguage = p.Language
	}
	if p.FillColor != "" {
		s.FillColor = settings.FillColor(p.FillColor)
	}
	if err := e.ApplySettings(s); err != nil {
		return sum, err
	}

	for _, pg := range p.Pages {
		if !e.GoTo(pg.Page - 1) {
			return sum, fmt.Errorf("page %d: document has %d pages", pg.Page, doc.PageCount())
		}
		sum.Pages++
		if pg.Clear {
			e.ClearPage()
		}
		if pg.Rotate != 0 {
			if !e.Rotate(pg.Rotate) {
				return sum, fmt.Errorf("page %d: rotate failed", pg.Page)
			}
			sum.Rotated++
		}
		if c := pg.Crop; c != nil {
			if !e.Crop(c.X, c.Y, c.Width, c.Height) {
				return sum, fmt.Errorf("page %d: crop %+v is outside the page", pg.Page, *c)
			}
			sum.Cropped++
		}
		for _, r := range pg.Rectangles {
			color := r.Color
			if color == "" {
				color = string(s.FillColor)
			}
			if _, ok := e.AddRectangleColor(model.Point{X: r.X0, Y: r.Y0}, model.Point{X: r.X1, Y: r.Y1}, color); ok {
				sum.Rectangles++
			}
		}
	}
	return sum, nil
}
