// Package scripting runs JavaScript batch edits against a document.
package scripting

import (
	"context"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute executes a script against the registered document.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterDOM exposes a document to scripts.
	RegisterDOM(dom DocumentDOM) error
}

// DocumentDOM is the document surface visible to scripts.
type DocumentDOM interface {
	PageCount() int
	// Page returns the page at a 0-based index.
	Page(index int) (PageProxy, error)
	// Log records a message from the script.
	Log(message string)
}

// PageProxy is one page exposed to scripts. Rectangle ids are strings;
// operations on unknown ids report false.
type PageProxy interface {
	Index() int
	Width() int
	Height() int
	Add(x0, y0, x1, y1 float64, color string) string
	Remove(id string) bool
	Move(id string, dx, dy float64) bool
	Resize(id string, width, height float64) bool
	Recolor(id, color string) bool
	Clear() int
	Rectangles() []RectangleView
	Rotate(degrees float64) bool
	Crop(x, y, width, height int) bool
}

// RectangleView is the script-side copy of a rectangle.
type RectangleView struct {
	ID    string  `json:"id"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Color string  `json:"color"`
}
