// Package workfile persists in-progress redactions in side files named by a
// hash of the source document path, independent of the document bytes.
package workfile

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/wudi/redactkit/idgen"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/settings"
)

// Triple is one rectangle on disk: [[x0,y0],[x1,y1],"color"].
type Triple struct {
	Start model.Point
	End   model.Point
	Color string
}

func (t Triple) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		[2]float64{t.Start.X, t.Start.Y},
		[2]float64{t.End.X, t.End.Y},
		t.Color,
	})
}

func (t *Triple) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("rectangle entry: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("rectangle entry has %d elements, want 3", len(parts))
	}
	var start, end [2]float64
	if err := json.Unmarshal(parts[0], &start); err != nil {
		return fmt.Errorf("rectangle start: %w", err)
	}
	if err := json.Unmarshal(parts[1], &end); err != nil {
		return fmt.Errorf("rectangle end: %w", err)
	}
	var color string
	if err := json.Unmarshal(parts[2], &color); err != nil {
		return fmt.Errorf("rectangle color: %w", err)
	}
	t.Start = model.Point{X: start[0], Y: start[1]}
	t.End = model.Point{X: end[0], Y: end[1]}
	t.Color = color
	return nil
}

// Record is the side-file payload.
type Record struct {
	Rectangles    [][]Triple `json:"rectangles"`
	Pages         int        `json:"pages"`
	CurrentPage   int        `json:"current_page"`
	FillColor     string     `json:"fill_color"`
	OutputQuality string     `json:"output_quality"`
}

// Empty reports whether no page carries a rectangle.
func (r Record) Empty() bool {
	for _, page := range r.Rectangles {
		if len(page) > 0 {
			return false
		}
	}
	return true
}

// Name maps a document path to its side-file name: the hex MD5 of the path.
func Name(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Encode captures the document's rectangles and the redaction-relevant
// settings. The boolean is false when no page has a rectangle.
func Encode(doc *model.Document, s settings.Settings) (Record, bool) {
	rec := Record{
		Rectangles:    make([][]Triple, 0, doc.PageCount()),
		Pages:         doc.PageCount(),
		CurrentPage:   doc.CurrentPageIndex(),
		FillColor:     string(s.FillColor),
		OutputQuality: string(s.OutputQuality),
	}
	for _, page := range doc.Pages() {
		triples := make([]Triple, 0, page.RectangleCount())
		for _, r := range page.Rectangles() {
			triples = append(triples, Triple{Start: r.Start, End: r.End, Color: r.Color})
		}
		rec.Rectangles = append(rec.Rectangles, triples)
	}
	return rec, !rec.Empty()
}

// Apply replaces the rectangles of every page covered by rec with the stored
// ones (fresh ids, normalized) and restores the cursor. Pages the record does
// not cover keep their rectangles; entries for pages the document lacks are
// ignored. It returns the number of rectangles restored.
func Apply(rec Record, doc *model.Document, newID idgen.Generator) int {
	if newID == nil {
		newID = idgen.Default
	}
	n := 0
	for i, triples := range rec.Rectangles {
		page, ok := doc.Page(i)
		if !ok {
			break
		}
		page.ClearRectangles()
		for _, t := range triples {
			r := model.NewRectangle(newID(), t.Start, t.End, t.Color)
			if !r.Valid() {
				continue
			}
			page.AddRectangle(r)
			n++
		}
	}
	doc.SetCurrentPage(rec.CurrentPage)
	return n
}
