package scripting

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/transform"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := engine.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := engine.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

func scriptDoc() *model.Document {
	d := model.NewDocument("batch.pdf")
	for i := 0; i < 3; i++ {
		d.AddPage(model.NewPage(i, image.NewNRGBA(image.Rect(0, 0, 200, 100)), model.Size{Width: 200, Height: 100}))
	}
	return d
}

func TestScriptRedactsEveryPage(t *testing.T) {
	doc := scriptDoc()
	script := `
		for (var i = 0; i < pageCount(); i++) {
			var p = page(i);
			var id = p.add(0, 0, p.width(), 20);
			if (i === 1) { p.recolor(id, "red"); }
		}
		log("done " + pageCount());
	`
	dom, err := Run(context.Background(), doc, script, "black", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if doc.TotalRectangles() != 3 {
		t.Fatalf("expected 3 rectangles, got %d", doc.TotalRectangles())
	}
	p, _ := doc.Page(1)
	r := p.Rectangles()[0]
	if r.Color != "red" || r.End.X != 200 || r.End.Y != 20 {
		t.Fatalf("unexpected rectangle %+v", r)
	}
	p0, _ := doc.Page(0)
	if p0.Rectangles()[0].Color != "black" {
		t.Fatalf("default color not applied")
	}
	if len(dom.Messages) != 1 || dom.Messages[0] != "done 3" {
		t.Fatalf("unexpected log %v", dom.Messages)
	}
}

func TestScriptReadsAndEditsRectangles(t *testing.T) {
	doc := scriptDoc()
	p, _ := doc.Page(0)
	p.AddRectangle(model.NewRectangle("keep", model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 2}, "black"))
	p.AddRectangle(model.NewRectangle("drop", model.Point{X: 3, Y: 3}, model.Point{X: 4, Y: 4}, "black"))

	script := `
		var p = page(0);
		var rs = p.rectangles();
		var moved = p.move(rs[0].id, 10, 10);
		var removed = p.remove("drop");
		var missing = p.resize("nope", 1, 1);
		[rs.length, moved, removed, missing].join(",");
	`
	engine := NewEngine()
	if err := engine.RegisterDOM(NewModelDOM(doc, nil, "black", nil)); err != nil {
		t.Fatal(err)
	}
	got, err := engine.Execute(context.Background(), script)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "2,true,true,false" {
		t.Fatalf("unexpected result %v", got)
	}
	r, _ := p.Rectangle("keep")
	if r.Start.X != 11 || p.RectangleCount() != 1 {
		t.Fatalf("edits not applied: %+v", p.Rectangles())
	}
}

func TestScriptOutOfRangePageIsNull(t *testing.T) {
	got, err := Run(context.Background(), scriptDoc(), `if (page(9) !== null) { throw new Error("expected null"); }`, "black", nil)
	if err != nil || got == nil {
		t.Fatalf("Run() error = %v", err)
	}
	_, err = Run(context.Background(), scriptDoc(), `page(0).nosuch()`, "black", nil)
	if err == nil || !strings.Contains(err.Error(), "run script") {
		t.Fatalf("expected script error, got %v", err)
	}
}

func TestScriptRotateClearsPage(t *testing.T) {
	doc := scriptDoc()
	if _, err := Run(context.Background(), doc, `var p = page(2); p.add(0,0,5,5); p.rotate(90);`, "black", nil); err != nil {
		t.Fatal(err)
	}
	p, _ := doc.Page(2)
	if p.RectangleCount() != 0 || p.Image().Bounds().Dx() != 100 {
		t.Fatalf("rotate not applied through script")
	}
}

func TestScriptCropUsesTransformerPolicy(t *testing.T) {
	policy := transform.CropPolicy{Tolerance: 0.05, DPI: 10, Papers: []transform.PaperSize{transform.A4}, Filter: imaging.Box}
	doc := scriptDoc()
	if _, err := Run(context.Background(), doc, `page(0).crop(0, 0, 70, 99);`, "black", nil, WithTransformer(transform.New(policy))); err != nil {
		t.Fatal(err)
	}
	p, _ := doc.Page(0)
	want := image.Rect(0, 0, 83, 117)
	if got := p.Image().Bounds(); got != want {
		t.Fatalf("crop bounds = %v, want snap to A4 at 10 DPI %v", got, want)
	}

	doc = scriptDoc()
	if _, err := Run(context.Background(), doc, `page(0).crop(0, 0, 70, 99);`, "black", nil, WithTransformer(transform.New(transform.CropPolicy{}))); err != nil {
		t.Fatal(err)
	}
	p, _ = doc.Page(0)
	if got := p.Image().Bounds(); got != image.Rect(0, 0, 70, 99) {
		t.Fatalf("crop without paper sizes = %v", got)
	}
}

func TestGojaEngine_Timeout(t *testing.T) {
	engine := NewEngine(WithTimeout(20 * time.Millisecond))
	if _, err := engine.Execute(context.Background(), "for (;;) {}"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestGojaEngine_ScriptErrors(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Execute(context.Background(), `throw new Error("no such field")`)
	if err == nil || !strings.Contains(err.Error(), "no such field") {
		t.Fatalf("expected thrown message, got %v", err)
	}
	if _, err := engine.Execute(context.Background(), "this is not javascript"); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestLogJoinsArguments(t *testing.T) {
	dom, err := Run(context.Background(), scriptDoc(), `log("pages:", pageCount())`, "black", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(dom.Messages) != 1 || dom.Messages[0] != "pages: 3" {
		t.Fatalf("unexpected messages %v", dom.Messages)
	}
}
