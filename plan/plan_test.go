package plan

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/session"
	"github.com/wudi/redactkit/settings"
)

const sample = `
quality: printer
ocr: false
fill_color: red
pages:
  - page: 1
    rectangles:
      - {x0: 10, y0: 10, x1: 50, y1: 20}
      - {x0: 60, y0: 60, x1: 70, y1: 70, color: "#000000"}
  - page: 2
    rotate: 90
    crop: {x: 0, y: 0, width: 50, height: 50}
    rectangles:
      - {x0: 1, y0: 1, x1: 5, y1: 5}
`

func editor(pages int) *session.Editor {
	e := session.New()
	d := model.NewDocument("plan.pdf")
	for i := 0; i < pages; i++ {
		d.AddPage(model.NewPage(i, imaging.New(100, 80, color.White), model.Size{Width: 100, Height: 80}))
	}
	e.Adopt(d)
	return e
}

func TestParseAndApply(t *testing.T) {
	p, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	e := editor(2)
	sum, err := p.Apply(e)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if sum.Pages != 2 || sum.Rectangles != 3 || sum.Rotated != 1 || sum.Cropped != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	s := e.Settings()
	if s.OutputQuality != settings.QualityPrinter || s.OCREnabled || s.FillColor != settings.ColorRed {
		t.Fatalf("settings not merged: %+v", s)
	}
	p1, _ := e.Document().Page(0)
	rs := p1.Rectangles()
	if len(rs) != 2 || rs[0].Color != "red" || rs[1].Color != "#000000" {
		t.Fatalf("unexpected rectangles %+v", rs)
	}
	p2, _ := e.Document().Page(1)
	if b := p2.Image().Bounds(); b.Dx() != 50 || b.Dy() != 50 || p2.RectangleCount() != 1 {
		t.Fatalf("page 2 not transformed: %v, %d rects", b, p2.RectangleCount())
	}
	if e.History().Len() != 5 {
		t.Fatalf("expected every edit to be undoable, got %d snapshots", e.History().Len())
	}
}

func TestValidateRejectsBadPlans(t *testing.T) {
	bad := `
quality: glossy
fill_color: purple
pages:
  - page: 0
    crop: {width: 0, height: 5}
    rectangles: [{color: "notacolor"}]
`
	_, err := Parse([]byte(bad))
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"glossy", "purple", "page must be", "crop", "rectangles[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestApplyPageOutOfRange(t *testing.T) {
	p, err := Parse([]byte("pages: [{page: 3, rectangles: [{x1: 1, y1: 1}]}]"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Apply(editor(2)); err == nil {
		t.Fatalf("expected error for missing page")
	}
	if _, err := p.Apply(session.New()); err != session.ErrNoDocument {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	os.WriteFile(path, []byte(sample), 0o644)
	p, err := Load(path)
	if err != nil || len(p.Pages) != 2 {
		t.Fatalf("Load() = %+v, %v", p, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestScriptSourceResolvesAgainstPlanDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "edit.js"), []byte("page(0).clear();"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "plan.yaml")
	os.WriteFile(path, []byte("script: edit.js\n"), 0o644)
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	src, err := p.ScriptSource()
	if err != nil || src != "page(0).clear();" {
		t.Fatalf("ScriptSource() = %q, %v", src, err)
	}

	empty := &Plan{}
	if src, err := empty.ScriptSource(); src != "" || err != nil {
		t.Fatalf("empty plan script = %q, %v", src, err)
	}
}
