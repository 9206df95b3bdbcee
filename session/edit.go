package session

import (
	"github.com/wudi/redactkit/history"
	"github.com/wudi/redactkit/model"
)

// snapshot runs op on the current page and records the page's prior state
// for undo only when op reports a change.
func (e *Editor) snapshot(op func(page *model.Page, index int) bool) bool {
	page, index, ok := e.current()
	if !ok {
		return false
	}
	var before history.Snapshot
	if e.history.Limit() > 0 {
		before, _ = history.Capture(e.doc, index)
	}
	if !op(page, index) {
		return false
	}
	if e.history.Limit() > 0 {
		e.history.PushSnapshot(before)
	}
	return true
}

// AddRectangle draws a rectangle in the current fill color.
func (e *Editor) AddRectangle(start, end model.Point) (model.Rectangle, bool) {
	return e.AddRectangleColor(start, end, string(e.settings.FillColor))
}

func (e *Editor) AddRectangleColor(start, end model.Point, color string) (model.Rectangle, bool) {
	var added model.Rectangle
	ok := e.snapshot(func(page *model.Page, _ int) bool {
		var ok bool
		added, ok = e.engine.Add(page, start, end, color)
		return ok
	})
	return added, ok
}

func (e *Editor) Move(id string, dx, dy float64) bool {
	return e.snapshot(func(page *model.Page, _ int) bool { return e.engine.Move(page, id, dx, dy) })
}

func (e *Editor) Resize(id string, width, height float64) bool {
	return e.snapshot(func(page *model.Page, _ int) bool { return e.engine.Resize(page, id, width, height) })
}

func (e *Editor) Recolor(id, color string) bool {
	return e.snapshot(func(page *model.Page, _ int) bool { return e.engine.Recolor(page, id, color) })
}

func (e *Editor) Remove(id string) bool {
	return e.snapshot(func(page *model.Page, _ int) bool { return e.engine.Remove(page, id) })
}

// ClearPage removes every rectangle on the current page.
func (e *Editor) ClearPage() int {
	n := 0
	e.snapshot(func(page *model.Page, _ int) bool {
		n = e.engine.ClearAll(page)
		return n > 0
	})
	return n
}

// ClearAll removes every rectangle on every page, one snapshot per page that
// had any.
func (e *Editor) ClearAll() int {
	if e.doc == nil {
		return 0
	}
	total := 0
	for i, page := range e.doc.Pages() {
		if page.RectangleCount() == 0 {
			continue
		}
		e.history.Push(e.doc, i)
		total += e.engine.ClearAll(page)
	}
	return total
}

// Rotate turns the current page counter-clockwise by degrees.
func (e *Editor) Rotate(degrees float64) bool {
	return e.snapshot(func(_ *model.Page, index int) bool { return e.transformer.Rotate(e.doc, index, degrees) })
}

// Crop crops the current page to the given pixel area.
func (e *Editor) Crop(x, y, width, height int) bool {
	return e.snapshot(func(_ *model.Page, index int) bool { return e.transformer.Crop(e.doc, index, x, y, width, height) })
}

// Undo restores the newest snapshot and shows its page.
func (e *Editor) Undo() (int, bool) {
	if e.doc == nil {
		return 0, false
	}
	index, ok := e.history.Undo(e.doc)
	if ok {
		e.doc.SetCurrentPage(index)
	}
	return index, ok
}

// UndoLastAdd removes the newest rectangle on the current page without
// touching the snapshot stack.
func (e *Editor) UndoLastAdd() bool {
	page, _, ok := e.current()
	return ok && e.engine.UndoLastAdd(page)
}
