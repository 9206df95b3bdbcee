// Package history implements the snapshot-based undo stack.
//
// A Manager is document scoped: it survives page navigation and is cleared
// when a new document is loaded. Snapshots are deep, so later edits to a
// live page never alias a stored state.
package history

import (
	"image"

	"github.com/wudi/redactkit/model"
)

// DefaultLimit is the stack depth used when none is configured.
const DefaultLimit = 10

// Snapshot is the captured state of one page.
type Snapshot struct {
	PageIndex  int
	Image      *image.NRGBA
	Size       model.Size
	Rectangles []model.Rectangle
}

// Manager is a bounded LIFO of page snapshots. When full, the oldest
// snapshot is evicted. A limit of zero disables history.
type Manager struct {
	limit int
	stack []Snapshot
}

func New(limit int) *Manager {
	if limit < 0 {
		limit = 0
	}
	return &Manager{limit: limit}
}

func (m *Manager) Limit() int { return m.limit }
func (m *Manager) Len() int   { return len(m.stack) }

// SetLimit changes the depth, evicting the oldest snapshots if needed.
func (m *Manager) SetLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	m.limit = limit
	m.trim()
}

// Capture deep-copies the state of the page at pageIndex without touching
// the stack. It reports false when the page does not exist.
func Capture(doc *model.Document, pageIndex int) (Snapshot, bool) {
	page, ok := doc.Page(pageIndex)
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		PageIndex:  pageIndex,
		Image:      page.CloneImage(),
		Size:       page.Size,
		Rectangles: page.Rectangles(),
	}, true
}

// Push captures the page at pageIndex and stores it. It must be called
// before the destructive operation. It reports false only when the page
// does not exist.
func (m *Manager) Push(doc *model.Document, pageIndex int) bool {
	s, ok := Capture(doc, pageIndex)
	if !ok {
		return false
	}
	m.PushSnapshot(s)
	return true
}

// PushSnapshot stores a snapshot taken earlier with Capture, evicting the
// oldest one when the stack is full.
func (m *Manager) PushSnapshot(s Snapshot) {
	if m.limit == 0 {
		return
	}
	m.stack = append(m.stack, s)
	m.trim()
}

// Undo pops the newest snapshot and restores its page. It returns the
// restored page index, or false when the stack is empty. A snapshot whose
// page no longer exists is discarded and the next one is tried.
func (m *Manager) Undo(doc *model.Document) (int, bool) {
	for len(m.stack) > 0 {
		s := m.stack[len(m.stack)-1]
		m.stack[len(m.stack)-1] = Snapshot{}
		m.stack = m.stack[:len(m.stack)-1]

		page, ok := doc.Page(s.PageIndex)
		if !ok {
			continue
		}
		page.Restore(s.Image, s.Size, s.Rectangles)
		return s.PageIndex, true
	}
	return 0, false
}

// Discard drops the newest snapshot without restoring it, for operations
// that turned out not to change anything.
func (m *Manager) Discard() bool {
	if len(m.stack) == 0 {
		return false
	}
	m.stack[len(m.stack)-1] = Snapshot{}
	m.stack = m.stack[:len(m.stack)-1]
	return true
}

// Peek returns the newest snapshot without removing it.
func (m *Manager) Peek() (Snapshot, bool) {
	if len(m.stack) == 0 {
		return Snapshot{}, false
	}
	return m.stack[len(m.stack)-1], true
}

// Clear drops every snapshot.
func (m *Manager) Clear() {
	m.stack = nil
}

func (m *Manager) trim() {
	if over := len(m.stack) - m.limit; over > 0 {
		for i := 0; i < over; i++ {
			m.stack[i] = Snapshot{}
		}
		m.stack = append([]Snapshot(nil), m.stack[over:]...)
	}
}
