package workfile

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/redactkit/idgen"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/settings"
)

func newDoc(path string, pages int) *model.Document {
	d := model.NewDocument(path)
	for i := 0; i < pages; i++ {
		d.AddPage(model.NewPage(i, image.NewNRGBA(image.Rect(0, 0, 10, 10)), model.Size{Width: 10, Height: 10}))
	}
	return d
}

func addRect(d *model.Document, page int, id string, x0, y0, x1, y1 float64, color string) {
	p, _ := d.Page(page)
	p.AddRectangle(model.NewRectangle(id, model.Point{X: x0, Y: y0}, model.Point{X: x1, Y: y1}, color))
}

func TestNameIsMD5OfPath(t *testing.T) {
	if got := Name("/home/u/doc.pdf"); len(got) != 32 {
		t.Fatalf("unexpected name %q", got)
	}
	if Name("") != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("md5 of empty path mismatch: %s", Name(""))
	}
	if Name("a.pdf") == Name("b.pdf") {
		t.Fatalf("distinct paths share a name")
	}
}

func TestRecordWireFormat(t *testing.T) {
	d := newDoc("a.pdf", 2)
	addRect(d, 1, "x", 10, 20, 30.5, 40, "black")
	d.SetCurrentPage(1)
	s := settings.Default()
	s.OutputQuality = settings.QualityPrinter

	rec, ok := Encode(d, s)
	if !ok {
		t.Fatalf("document with rectangles encoded as empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"rectangles":[[],[[[10,20],[30.5,40],"black"]]],"pages":2,"current_page":1,"fill_color":"black","output_quality":"printer"}`
	if string(data) != want {
		t.Fatalf("wire format:\n got %s\nwant %s", data, want)
	}
}

func TestTripleRejectsMalformed(t *testing.T) {
	for _, bad := range []string{`[[1,2],[3,4]]`, `{"a":1}`, `[[1],[3,4],"x"]`, `[[1,2],[3,4],5]`} {
		var tr Triple
		if err := json.Unmarshal([]byte(bad), &tr); err == nil {
			t.Fatalf("%s decoded without error", bad)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	d := newDoc("/scans/contract.pdf", 3)
	addRect(d, 0, "a", 50, 60, 10, 20, "black")
	addRect(d, 2, "b", 1, 1, 5, 5, "red")
	addRect(d, 2, "c", 2, 2, 3, 3, "#00ff00")
	d.SetCurrentPage(2)

	if err := store.Save(d, settings.Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec, ok := store.Load("/scans/contract.pdf")
	if !ok {
		t.Fatalf("record not found")
	}
	if rec.Pages != 3 || rec.CurrentPage != 2 || rec.FillColor != "black" || rec.OutputQuality != "ebook" {
		t.Fatalf("unexpected header %+v", rec)
	}

	fresh := newDoc("/scans/contract.pdf", 3)
	if n := Apply(rec, fresh, idgen.Sequence("n")); n != 3 {
		t.Fatalf("restored %d rectangles", n)
	}
	for i := 0; i < 3; i++ {
		orig, _ := d.Page(i)
		got, _ := fresh.Page(i)
		a, b := orig.Rectangles(), got.Rectangles()
		if len(a) != len(b) {
			t.Fatalf("page %d: %d vs %d rectangles", i, len(a), len(b))
		}
		for j := range a {
			if a[j].Start != b[j].Start || a[j].End != b[j].End || a[j].Color != b[j].Color {
				t.Fatalf("page %d rect %d: %+v vs %+v", i, j, a[j], b[j])
			}
		}
	}
	if fresh.CurrentPageIndex() != 2 {
		t.Fatalf("cursor not restored")
	}
}

func TestEmptySaveDeletes(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	d := newDoc("doc.pdf", 2)
	addRect(d, 0, "a", 0, 0, 1, 1, "black")
	if err := store.Save(d, settings.Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Name("doc.pdf"))); err != nil {
		t.Fatalf("work file missing: %v", err)
	}

	p, _ := d.Page(0)
	p.ClearRectangles()
	if err := store.Save(d, settings.Default()); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Name("doc.pdf"))); !os.IsNotExist(err) {
		t.Fatalf("work file should be gone, stat err = %v", err)
	}
	if _, ok := store.Load("doc.pdf"); ok {
		t.Fatalf("load after empty save should report none")
	}
	if err := store.Save(d, settings.Default()); err != nil {
		t.Fatalf("repeated empty save: %v", err)
	}
}

func TestCorruptFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, Name("x.pdf")), []byte(`{"rectangles": [[["bad"]]]}`), 0o644)
	if _, ok := NewFileStore(dir, nil).Load("x.pdf"); ok {
		t.Fatalf("corrupt work file loaded")
	}
}

func TestRetentionDropsOldest(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	s := settings.Default()
	s.HistoryLength = 2

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		d := newDoc(fmt.Sprintf("doc%d.pdf", i), 1)
		addRect(d, 0, "a", 0, 0, 1, 1, "black")
		if err := store.Save(d, s); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		mod := base.Add(time.Duration(i) * time.Minute)
		os.Chtimes(filepath.Join(dir, Name(d.FilePath)), mod, mod)
	}
	// The final save pruned before its own timestamp was rewound, so run a
	// fifth save to prune against the adjusted times.
	d := newDoc("doc4.pdf", 1)
	addRect(d, 0, "a", 0, 0, 1, 1, "black")
	if err := store.Save(d, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 work files, got %v", names)
	}
	for _, keep := range []string{"doc3.pdf", "doc4.pdf"} {
		if _, ok := store.Load(keep); !ok {
			t.Fatalf("%s should have been retained", keep)
		}
	}
}

func TestApplyIgnoresExtraPages(t *testing.T) {
	rec := Record{
		Rectangles: [][]Triple{
			{{Start: model.Point{X: 1, Y: 1}, End: model.Point{X: 2, Y: 2}, Color: "black"}},
			{{Start: model.Point{X: 1, Y: 1}, End: model.Point{X: 2, Y: 2}, Color: "black"}},
		},
		CurrentPage: 7,
	}
	d := newDoc("a.pdf", 1)
	if n := Apply(rec, d, nil); n != 1 {
		t.Fatalf("restored %d, want 1", n)
	}
	if d.CurrentPageIndex() != 0 {
		t.Fatalf("out-of-range cursor applied")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	d := newDoc("a.pdf", 1)
	addRect(d, 0, "a", 0, 0, 1, 1, "black")
	m.Save(d, settings.Default())
	if _, ok := m.Load("a.pdf"); !ok || m.Len() != 1 {
		t.Fatalf("record not stored")
	}
	p, _ := d.Page(0)
	p.ClearRectangles()
	m.Save(d, settings.Default())
	if _, ok := m.Load("a.pdf"); ok {
		t.Fatalf("empty save should delete")
	}
}
