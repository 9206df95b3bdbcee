// Package redact is the editing engine: the only code path that mutates a
// page's rectangle list. Every operation leaves rectangles normalized and
// keeps ids stable across move, resize and recolor.
package redact

import (
	"github.com/wudi/redactkit/idgen"
	"github.com/wudi/redactkit/model"
)

// Engine applies rectangle edits to pages. The zero value is not usable;
// construct with NewEngine.
type Engine struct {
	newID idgen.Generator
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides the id strategy for new rectangles.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.newID = gen }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{newID: idgen.Default}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Add creates a normalized rectangle with a fresh id and appends it to the
// page. Zero-area rectangles are accepted; non-finite coordinates are not.
func (e *Engine) Add(page *model.Page, start, end model.Point, color string) (model.Rectangle, bool) {
	if page == nil {
		return model.Rectangle{}, false
	}
	r := model.NewRectangle(e.newID(), start, end, color)
	if !r.Valid() {
		return model.Rectangle{}, false
	}
	page.AddRectangle(r)
	return r, true
}

// Remove deletes the rectangle with the given id.
func (e *Engine) Remove(page *model.Page, id string) bool {
	if page == nil {
		return false
	}
	return page.RemoveRectangle(id)
}

// ClearAll removes every rectangle on the page and returns the count.
func (e *Engine) ClearAll(page *model.Page) int {
	if page == nil {
		return 0
	}
	return page.ClearRectangles()
}

// Move translates a rectangle in place in the z-order.
func (e *Engine) Move(page *model.Page, id string, dx, dy float64) bool {
	return e.update(page, id, func(r model.Rectangle) model.Rectangle { return r.Move(dx, dy) })
}

// Resize keeps the top-left corner and sets the bottom-right corner to
// start+(width, height).
func (e *Engine) Resize(page *model.Page, id string, width, height float64) bool {
	return e.update(page, id, func(r model.Rectangle) model.Rectangle { return r.Resize(width, height) })
}

func (e *Engine) Recolor(page *model.Page, id, color string) bool {
	return e.update(page, id, func(r model.Rectangle) model.Rectangle { return r.WithColor(color) })
}

// UndoLastAdd drops the most recently added rectangle without touching the
// raster. It is independent of the snapshot history.
func (e *Engine) UndoLastAdd(page *model.Page) bool {
	if page == nil {
		return false
	}
	return page.PopRectangle()
}

func (e *Engine) update(page *model.Page, id string, fn func(model.Rectangle) model.Rectangle) bool {
	if page == nil {
		return false
	}
	r, ok := page.Rectangle(id)
	if !ok {
		return false
	}
	next := fn(r)
	if !next.Valid() {
		return false
	}
	return page.ReplaceRectangle(next)
}
