// Package session is the interactive editor: it owns the open document and
// routes every edit through the redaction engine, snapshotting the page for
// undo first. An Editor is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/wudi/redactkit/export"
	"github.com/wudi/redactkit/history"
	"github.com/wudi/redactkit/idgen"
	"github.com/wudi/redactkit/loader"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/redact"
	"github.com/wudi/redactkit/settings"
	"github.com/wudi/redactkit/tasks"
	"github.com/wudi/redactkit/transform"
	"github.com/wudi/redactkit/workfile"
)

// ErrNoDocument is returned by operations that need an open document.
var ErrNoDocument = errors.New("no document open")

// ZoomStep is the default increment for ZoomIn and ZoomOut.
const ZoomStep = 10

// Editor holds one open document and its per-view state.
type Editor struct {
	settings    settings.Settings
	doc         *model.Document
	engine      *redact.Engine
	history     *history.Manager
	transformer *transform.Transformer
	works       workfile.Store
	loader      *loader.Loader
	exporter    *export.Exporter
	logger      observability.Logger
	newID       idgen.Generator
	zoom        int
}

type Option func(*Editor)

func WithSettings(s settings.Settings) Option { return func(e *Editor) { e.settings = s } }

func WithWorkStore(s workfile.Store) Option { return func(e *Editor) { e.works = s } }

func WithLoader(l *loader.Loader) Option { return func(e *Editor) { e.loader = l } }

func WithExporter(x *export.Exporter) Option { return func(e *Editor) { e.exporter = x } }

func WithTransformer(t *transform.Transformer) Option { return func(e *Editor) { e.transformer = t } }

func WithLogger(l observability.Logger) Option { return func(e *Editor) { e.logger = l } }

func WithIDGenerator(g idgen.Generator) Option { return func(e *Editor) { e.newID = g } }

// New builds an editor with no document. Unset collaborators get defaults;
// the work-file store defaults to an in-memory one.
func New(opts ...Option) *Editor {
	e := &Editor{settings: settings.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = observability.OrNop(e.logger)
	if e.newID == nil {
		e.newID = idgen.Default
	}
	if e.works == nil {
		e.works = workfile.NewMemoryStore()
	}
	if e.loader == nil {
		e.loader = loader.New(loader.WithLogger(e.logger))
	}
	if e.exporter == nil {
		e.exporter = export.New(nil, e.logger)
	}
	if e.transformer == nil {
		e.transformer = transform.New(transform.DefaultCropPolicy)
	}
	e.engine = redact.NewEngine(redact.WithIDGenerator(e.newID))
	e.history = history.New(e.settings.HistoryLength)
	e.zoom = settings.ClampZoom(e.settings.ZoomLevel)
	return e
}

// Settings returns the current settings.
func (e *Editor) Settings() settings.Settings { return e.settings }

// ApplySettings validates s and makes it current. The undo depth follows
// HistoryLength.
func (e *Editor) ApplySettings(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.settings = s
	e.history.SetLimit(s.HistoryLength)
	return nil
}

// SetFillColor changes the color used by AddRectangle.
func (e *Editor) SetFillColor(c settings.FillColor) bool {
	if !c.Valid() {
		return false
	}
	e.settings.FillColor = c
	return true
}

// Document returns the open document, or nil.
func (e *Editor) Document() *model.Document { return e.doc }

// History exposes the undo stack for inspection.
func (e *Editor) History() *history.Manager { return e.history }

// Open loads path synchronously and adopts it.
func (e *Editor) Open(ctx context.Context, path string, progress loader.ProgressFunc) (int, error) {
	doc, err := e.loader.Load(ctx, path, progress)
	if err != nil {
		return 0, err
	}
	return e.Adopt(doc), nil
}

// StartLoad loads path in the background. Pass the outcome's document to
// Adopt on the interactive thread.
func (e *Editor) StartLoad(ctx context.Context, path string) *tasks.Handle[*model.Document] {
	return tasks.Load(ctx, e.loader, path, tasks.WithLogger(e.logger))
}

// Adopt replaces the open document wholesale. The previous document is
// auto-saved when enabled, the undo stack is cleared and any work file for
// the new document is applied. It returns the number of restored
// rectangles.
func (e *Editor) Adopt(doc *model.Document) int {
	if e.doc != nil && e.settings.AutoSaveWorkFiles {
		if err := e.Save(); err != nil {
			e.logger.Warn("auto-save failed", observability.String("document", e.doc.FilePath), observability.Error("error", err))
		}
	}
	e.doc = doc
	e.history.Clear()
	if doc == nil || doc.FilePath == "" {
		return 0
	}
	rec, ok := e.works.Load(doc.FilePath)
	if !ok {
		return 0
	}
	n := workfile.Apply(rec, doc, e.newID)
	e.logger.Info("work file restored", observability.String("document", doc.FilePath), observability.Int("rectangles", n))
	return n
}

// Close auto-saves when enabled and drops the document.
func (e *Editor) Close() error {
	if e.doc == nil {
		return nil
	}
	var err error
	if e.settings.AutoSaveWorkFiles {
		err = e.Save()
	}
	e.doc = nil
	e.history.Clear()
	return err
}

// Save writes the work file for the open document.
func (e *Editor) Save() error {
	if e.doc == nil {
		return ErrNoDocument
	}
	return e.works.Save(e.doc, e.settings)
}

// Export writes the redacted PDF with the current quality and OCR settings.
func (e *Editor) Export(ctx context.Context, dest string, progress export.ProgressFunc) (export.Result, error) {
	if e.doc == nil {
		return export.Result{}, ErrNoDocument
	}
	return e.exporter.Export(ctx, e.doc, dest, export.OptionsFrom(e.settings), progress)
}

// StartExport exports a copy of the document in the background.
func (e *Editor) StartExport(ctx context.Context, dest string) (*tasks.Handle[export.Result], error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	return tasks.Export(ctx, e.exporter, e.doc, dest, export.OptionsFrom(e.settings), tasks.WithLogger(e.logger)), nil
}

// Navigation.

func (e *Editor) NextPage() bool     { return e.doc != nil && e.doc.NextPage() }
func (e *Editor) PreviousPage() bool { return e.doc != nil && e.doc.PreviousPage() }
func (e *Editor) GoTo(index int) bool {
	return e.doc != nil && e.doc.SetCurrentPage(index)
}

func (e *Editor) current() (*model.Page, int, bool) {
	if e.doc == nil {
		return nil, 0, false
	}
	p, ok := e.doc.CurrentPage()
	return p, e.doc.CurrentPageIndex(), ok
}

// Zoom is per editor, not shared between views.

func (e *Editor) Zoom() int { return e.zoom }

func (e *Editor) SetZoom(z int) int {
	e.zoom = settings.ClampZoom(z)
	e.settings.ZoomLevel = e.zoom
	return e.zoom
}

func (e *Editor) ZoomIn() int  { return e.SetZoom(e.zoom + ZoomStep) }
func (e *Editor) ZoomOut() int { return e.SetZoom(e.zoom - ZoomStep) }

// ToImage maps a point in view space at the current zoom to image space.
func (e *Editor) ToImage(p model.Point) model.Point {
	f := float64(e.zoom) / 100
	return model.Point{X: p.X / f, Y: p.Y / f}
}

// ToView maps an image-space point to view space.
func (e *Editor) ToView(p model.Point) model.Point {
	f := float64(e.zoom) / 100
	return model.Point{X: p.X * f, Y: p.Y * f}
}

// Preview flattens the current page and scales it to the zoom level.
func (e *Editor) Preview() (*image.NRGBA, bool) {
	page, _, ok := e.current()
	if !ok {
		return nil, false
	}
	flat := redact.Flatten(page)
	if flat == nil {
		return nil, false
	}
	if e.zoom == 100 {
		return flat, true
	}
	w := max(1, flat.Rect.Dx()*e.zoom/100)
	return imaging.Resize(flat, w, 0, imaging.Linear), true
}
