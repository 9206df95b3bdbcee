// Package model holds the redaction data model: rectangles bound to a page
// raster, pages, and documents with a page cursor.
//
// The model is not safe for concurrent use. Worker tasks operate on a Clone
// and hand results back to the owning goroutine.
package model

import (
	"image"
	"math"
)

// Point is an image-space coordinate in pixels of the page raster.
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Rectangle is an axis-aligned redaction marker. Start is always the
// top-left corner and End the bottom-right corner.
//
// Rectangle is a value: Move, Resize and WithColor return a copy carrying the
// same ID, and the owning Page replaces the old value.
type Rectangle struct {
	ID    string
	Start Point
	End   Point
	Color string
}

// NewRectangle builds a normalized rectangle from two arbitrary corners.
func NewRectangle(id string, start, end Point, color string) Rectangle {
	return Rectangle{
		ID:    id,
		Start: Point{X: math.Min(start.X, end.X), Y: math.Min(start.Y, end.Y)},
		End:   Point{X: math.Max(start.X, end.X), Y: math.Max(start.Y, end.Y)},
		Color: color,
	}
}

func (r Rectangle) Width() float64  { return r.End.X - r.Start.X }
func (r Rectangle) Height() float64 { return r.End.Y - r.Start.Y }
func (r Rectangle) Area() float64   { return r.Width() * r.Height() }

// Move returns the rectangle translated by (dx, dy).
func (r Rectangle) Move(dx, dy float64) Rectangle {
	return NewRectangle(r.ID, r.Start.Add(dx, dy), r.End.Add(dx, dy), r.Color)
}

// Resize keeps Start fixed and sets End to Start+(width, height). Negative
// dimensions flip the rectangle and are normalized like any other input.
func (r Rectangle) Resize(width, height float64) Rectangle {
	return NewRectangle(r.ID, r.Start, r.Start.Add(width, height), r.Color)
}

// WithColor returns the rectangle with a different fill color.
func (r Rectangle) WithColor(color string) Rectangle {
	return Rectangle{ID: r.ID, Start: r.Start, End: r.End, Color: color}
}

// Bounds returns the pixel cover of the rectangle. Both corners are
// inclusive, so a zero-area rectangle still covers one pixel.
func (r Rectangle) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.Start.X)),
		int(math.Floor(r.Start.Y)),
		int(math.Floor(r.End.X))+1,
		int(math.Floor(r.End.Y))+1,
	)
}

// Valid reports whether every coordinate is finite.
func (r Rectangle) Valid() bool {
	for _, v := range []float64{r.Start.X, r.Start.Y, r.End.X, r.End.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
