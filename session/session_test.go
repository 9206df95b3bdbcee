package session

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/wudi/redactkit/idgen"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/settings"
	"github.com/wudi/redactkit/workfile"
)

func newDoc(path string, pages int) *model.Document {
	d := model.NewDocument(path)
	for i := 0; i < pages; i++ {
		d.AddPage(model.NewPage(i, imaging.New(100, 80, color.White), model.Size{Width: 100, Height: 80}))
	}
	return d
}

func newEditor(t *testing.T, opts ...Option) (*Editor, *workfile.MemoryStore) {
	t.Helper()
	store := workfile.NewMemoryStore()
	opts = append([]Option{WithWorkStore(store), WithIDGenerator(idgen.Sequence("r"))}, opts...)
	return New(opts...), store
}

func TestEditsSnapshotAndUndo(t *testing.T) {
	e, _ := newEditor(t)
	e.Adopt(newDoc("a.pdf", 2))

	r, ok := e.AddRectangle(model.Point{X: 10, Y: 10}, model.Point{X: 50, Y: 50})
	if !ok || r.Color != "black" {
		t.Fatalf("add = %+v, %v", r, ok)
	}
	if !e.Move(r.ID, 5, 5) || !e.Resize(r.ID, 20, 20) {
		t.Fatalf("move/resize failed")
	}
	p, _ := e.Document().CurrentPage()
	got, _ := p.Rectangle(r.ID)
	if got.Start != (model.Point{X: 15, Y: 15}) || got.End != (model.Point{X: 35, Y: 35}) {
		t.Fatalf("unexpected rectangle %+v", got)
	}
	if e.History().Len() != 3 {
		t.Fatalf("expected 3 snapshots, got %d", e.History().Len())
	}

	if e.Move("missing", 1, 1) {
		t.Fatalf("move of unknown id succeeded")
	}
	if e.History().Len() != 3 {
		t.Fatalf("failed edit left a snapshot")
	}

	e.Undo()
	got, _ = p.Rectangle(r.ID)
	if got.End != (model.Point{X: 55, Y: 55}) {
		t.Fatalf("undo did not revert resize: %+v", got)
	}
}

func TestFailedEditKeepsFullHistory(t *testing.T) {
	s := settings.Default()
	s.HistoryLength = 2
	e, _ := newEditor(t, WithSettings(s))
	e.Adopt(newDoc("a.pdf", 1))

	r1, _ := e.AddRectangle(model.Point{X: 1, Y: 1}, model.Point{X: 10, Y: 10})
	e.AddRectangle(model.Point{X: 20, Y: 20}, model.Point{X: 30, Y: 30})
	if e.History().Len() != 2 {
		t.Fatalf("expected a full stack of 2, got %d", e.History().Len())
	}
	if e.Move("missing", 1, 1) || e.Recolor("missing", "red") || e.Remove("missing") {
		t.Fatalf("edit of unknown id succeeded")
	}
	if e.History().Len() != 2 {
		t.Fatalf("failed edits changed history depth to %d", e.History().Len())
	}

	if _, ok := e.Undo(); !ok {
		t.Fatalf("first undo failed")
	}
	if _, ok := e.Undo(); !ok {
		t.Fatalf("second undo failed")
	}
	p, _ := e.Document().CurrentPage()
	if n := p.RectangleCount(); n != 0 {
		t.Fatalf("expected no rectangles after two undos, got %d", n)
	}
	if _, ok := p.Rectangle(r1.ID); ok {
		t.Fatalf("first rectangle survived undo")
	}
}

func TestUndoNavigatesToRestoredPage(t *testing.T) {
	e, _ := newEditor(t)
	e.Adopt(newDoc("a.pdf", 3))
	e.GoTo(2)
	e.AddRectangle(model.Point{}, model.Point{X: 5, Y: 5})
	e.GoTo(0)
	if e.History().Len() != 1 {
		t.Fatalf("navigation cleared history")
	}
	idx, ok := e.Undo()
	if !ok || idx != 2 || e.Document().CurrentPageIndex() != 2 {
		t.Fatalf("undo = %d, %v; current %d", idx, ok, e.Document().CurrentPageIndex())
	}
	if e.Document().TotalRectangles() != 0 {
		t.Fatalf("rectangle not undone")
	}
	if _, ok := e.Undo(); ok {
		t.Fatalf("undo on empty stack succeeded")
	}
}

func TestRotateClearsAndUndoRestores(t *testing.T) {
	e, _ := newEditor(t)
	e.Adopt(newDoc("a.pdf", 1))
	e.AddRectangle(model.Point{}, model.Point{X: 5, Y: 5})
	if !e.Rotate(90) {
		t.Fatalf("rotate failed")
	}
	p, _ := e.Document().CurrentPage()
	if p.RectangleCount() != 0 || p.Image().Bounds().Dx() != 80 {
		t.Fatalf("rotate did not replace page state")
	}
	e.Undo()
	if p.RectangleCount() != 1 || p.Image().Bounds().Dx() != 100 || p.Size.Width != 100 {
		t.Fatalf("undo did not restore page")
	}
	if e.Crop(200, 200, 10, 10) {
		t.Fatalf("crop outside the image succeeded")
	}
	if e.History().Len() != 1 {
		t.Fatalf("failed crop left a snapshot")
	}
}

func TestClearAllSnapshotsEachPage(t *testing.T) {
	e, _ := newEditor(t)
	e.Adopt(newDoc("a.pdf", 3))
	e.AddRectangle(model.Point{}, model.Point{X: 1, Y: 1})
	e.GoTo(2)
	e.AddRectangle(model.Point{}, model.Point{X: 1, Y: 1})
	e.AddRectangle(model.Point{}, model.Point{X: 2, Y: 2})
	before := e.History().Len()
	if n := e.ClearAll(); n != 3 {
		t.Fatalf("cleared %d", n)
	}
	if e.History().Len() != before+2 {
		t.Fatalf("expected one snapshot per non-empty page")
	}
	if e.ClearPage() != 0 || e.History().Len() != before+2 {
		t.Fatalf("clearing an empty page should not snapshot")
	}
}

func TestAdoptRestoresWorkFileAndClearsHistory(t *testing.T) {
	e, store := newEditor(t)
	first := newDoc("a.pdf", 2)
	e.Adopt(first)
	e.GoTo(1)
	e.AddRectangle(model.Point{X: 1, Y: 1}, model.Point{X: 9, Y: 9})

	e.Adopt(newDoc("b.pdf", 1))
	if _, ok := store.Load("a.pdf"); !ok {
		t.Fatalf("previous document not auto-saved")
	}
	if e.History().Len() != 0 {
		t.Fatalf("history survived document load")
	}

	if n := e.Adopt(newDoc("a.pdf", 2)); n != 1 {
		t.Fatalf("restored %d rectangles", n)
	}
	if e.Document().CurrentPageIndex() != 1 {
		t.Fatalf("current page not restored")
	}
}

func TestCloseWithoutAutosave(t *testing.T) {
	s := settings.Default()
	s.AutoSaveWorkFiles = false
	e, store := newEditor(t, WithSettings(s))
	e.Adopt(newDoc("a.pdf", 1))
	e.AddRectangle(model.Point{}, model.Point{X: 1, Y: 1})
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Fatalf("work file written with autosave off")
	}
	if err := e.Save(); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestZoomIsClampedAndMapsCoordinates(t *testing.T) {
	e, _ := newEditor(t)
	if e.SetZoom(1000) != settings.MaxZoom || e.SetZoom(0) != settings.MinZoom {
		t.Fatalf("zoom not clamped")
	}
	e.SetZoom(200)
	if p := e.ToImage(model.Point{X: 100, Y: 50}); p.X != 50 || p.Y != 25 {
		t.Fatalf("ToImage = %+v", p)
	}
	if p := e.ToView(model.Point{X: 50, Y: 25}); p.X != 100 || p.Y != 50 {
		t.Fatalf("ToView = %+v", p)
	}
	other, _ := newEditor(t)
	if other.Zoom() != 100 {
		t.Fatalf("zoom leaked between editors")
	}
	if e.ZoomOut() != 190 {
		t.Fatalf("zoom out step")
	}
}

func TestPreviewScalesFlattenedPage(t *testing.T) {
	e, _ := newEditor(t)
	if _, ok := e.Preview(); ok {
		t.Fatalf("preview without document")
	}
	e.Adopt(newDoc("a.pdf", 1))
	e.AddRectangle(model.Point{}, model.Point{X: 10, Y: 10})
	e.SetZoom(50)
	img, ok := e.Preview()
	if !ok || img.Bounds().Dx() != 50 || img.Bounds().Dy() != 40 {
		t.Fatalf("unexpected preview %v", img.Bounds())
	}
}

func TestOpenImageAndExport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	if err := imaging.Save(imaging.New(60, 90, color.White), src); err != nil {
		t.Fatal(err)
	}
	s := settings.Default()
	s.OCREnabled = false
	e, _ := newEditor(t, WithSettings(s))
	if _, err := e.Open(context.Background(), src, nil); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	e.AddRectangle(model.Point{X: 5, Y: 5}, model.Point{X: 20, Y: 20})
	dest := filepath.Join(dir, "out.pdf")
	res, err := e.Export(context.Background(), dest, nil)
	if err != nil || res.Pages != 1 {
		t.Fatalf("Export() = %+v, %v", res, err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	h, err := e.StartExport(context.Background(), filepath.Join(dir, "bg.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if out := h.Wait(); out.Err != nil || out.Value.Pages != 1 {
		t.Fatalf("background export = %+v", out)
	}
}

func TestApplySettingsValidates(t *testing.T) {
	e, _ := newEditor(t)
	bad := settings.Default()
	bad.ZoomLevel = 5
	if err := e.ApplySettings(bad); !errors.Is(err, settings.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	good := settings.Default()
	good.HistoryLength = 2
	if err := e.ApplySettings(good); err != nil || e.History().Limit() != 2 {
		t.Fatalf("settings not applied")
	}
}

func TestRunScriptAppliesOnSuccessOnly(t *testing.T) {
	e, _ := newEditor(t)
	e.Adopt(newDoc("a.pdf", 2))
	e.AddRectangle(model.Point{}, model.Point{X: 1, Y: 1})
	if err := e.RunScript(context.Background(), `page(1).add(0, 0, 10, 10)`); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	if e.Document().TotalRectangles() != 2 || e.History().Len() != 2 {
		t.Fatalf("batch not applied: %d rectangles, %d snapshots", e.Document().TotalRectangles(), e.History().Len())
	}
	if err := e.RunScript(context.Background(), `page(0).clear(); throw new Error("stop")`); err == nil {
		t.Fatalf("expected script error")
	}
	if e.Document().TotalRectangles() != 2 {
		t.Fatalf("failed batch leaked edits")
	}
}

func TestBatchUndoesPageByPage(t *testing.T) {
	e, _ := newEditor(t)
	e.Adopt(newDoc("a.pdf", 3))
	e.AddRectangle(model.Point{}, model.Point{X: 5, Y: 5})
	script := `page(1).add(0, 0, 10, 10); page(2).rotate(90);`
	if err := e.RunScript(context.Background(), script); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	if e.History().Len() != 3 {
		t.Fatalf("expected the earlier edit plus one snapshot per changed page, got %d", e.History().Len())
	}

	if idx, ok := e.Undo(); !ok || idx != 2 {
		t.Fatalf("undo = %d, %v; want page 2", idx, ok)
	}
	p2, _ := e.Document().Page(2)
	if b := p2.Image().Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Fatalf("rotation not undone: %v", b)
	}
	if idx, ok := e.Undo(); !ok || idx != 1 {
		t.Fatalf("undo = %d, %v; want page 1", idx, ok)
	}
	if idx, ok := e.Undo(); !ok || idx != 0 || e.Document().TotalRectangles() != 0 {
		t.Fatalf("pre-batch edit not undone: %d, %v, %d rectangles", idx, ok, e.Document().TotalRectangles())
	}
}
