package model

import (
	"path/filepath"
	"strings"

	"github.com/wudi/redactkit/idgen"
)

// UntitledDocument is the title of a document without a file path.
const UntitledDocument = "Untitled Document"

// Document is an ordered list of pages with a current-page cursor.
type Document struct {
	ID       string
	FilePath string
	Metadata map[string]string

	pages   []*Page
	current int
}

func NewDocument(filePath string) *Document {
	return &Document{ID: idgen.Default(), FilePath: filePath, Metadata: map[string]string{}}
}

func (d *Document) AddPage(p *Page) {
	d.pages = append(d.pages, p)
}

// RemovePage deletes the page at index and pulls the cursor back into range.
func (d *Document) RemovePage(index int) bool {
	if index < 0 || index >= len(d.pages) {
		return false
	}
	d.pages = append(d.pages[:index], d.pages[index+1:]...)
	if d.current >= len(d.pages) {
		d.current = max(0, len(d.pages)-1)
	}
	return true
}

// Page returns the page at index.
func (d *Document) Page(index int) (*Page, bool) {
	if index < 0 || index >= len(d.pages) {
		return nil, false
	}
	return d.pages[index], true
}

// Pages returns the page list. The slice is a copy; the pages are shared.
func (d *Document) Pages() []*Page { return append([]*Page(nil), d.pages...) }

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) CurrentPageIndex() int { return d.current }

func (d *Document) CurrentPage() (*Page, bool) { return d.Page(d.current) }

// SetCurrentPage moves the cursor; out-of-range indexes are rejected.
func (d *Document) SetCurrentPage(index int) bool {
	if index < 0 || index >= len(d.pages) {
		return false
	}
	d.current = index
	return true
}

func (d *Document) NextPage() bool {
	if d.current >= len(d.pages)-1 {
		return false
	}
	d.current++
	return true
}

func (d *Document) PreviousPage() bool {
	if d.current <= 0 {
		return false
	}
	d.current--
	return true
}

// Title is the file name without extension.
func (d *Document) Title() string {
	if d.FilePath == "" {
		return UntitledDocument
	}
	base := filepath.Base(d.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TotalRectangles sums the rectangle count over every page.
func (d *Document) TotalRectangles() int {
	n := 0
	for _, p := range d.pages {
		n += p.RectangleCount()
	}
	return n
}

// Clone returns a deep copy suitable for handing to a worker goroutine.
func (d *Document) Clone() *Document {
	out := &Document{
		ID:       d.ID,
		FilePath: d.FilePath,
		Metadata: make(map[string]string, len(d.Metadata)),
		pages:    make([]*Page, len(d.pages)),
		current:  d.current,
	}
	for k, v := range d.Metadata {
		out.Metadata[k] = v
	}
	for i, p := range d.pages {
		out.pages[i] = p.Clone()
	}
	return out
}
