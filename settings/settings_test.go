package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Settings){
		"color":    func(s *Settings) { s.FillColor = "mauve" },
		"quality":  func(s *Settings) { s.OutputQuality = "poster" },
		"history":  func(s *Settings) { s.HistoryLength = -1 },
		"zoom-low": func(s *Settings) { s.ZoomLevel = 9 },
		"zoom-hi":  func(s *Settings) { s.ZoomLevel = 401 },
		"ocr-lang": func(s *Settings) { s.OCRLanguage = " + " },
	}
	for name, mutate := range cases {
		s := Default()
		mutate(&s)
		if err := s.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
	s := Default()
	s.OCREnabled = false
	s.OCRLanguage = ""
	if err := s.Validate(); err != nil {
		t.Fatalf("empty language is fine when OCR is off: %v", err)
	}
}

func TestQualityPolicy(t *testing.T) {
	want := map[Quality]int{QualityScreen: 96, QualityEbook: 150, QualityPrinter: 300, QualityPrepress: 0}
	for q, dpi := range want {
		if q.DPI() != dpi {
			t.Fatalf("%s DPI = %d, want %d", q, q.DPI(), dpi)
		}
	}
	if q, err := ParseQuality(" Printer "); err != nil || q != QualityPrinter {
		t.Fatalf("ParseQuality = %q, %v", q, err)
	}
	if _, err := ParseQuality("best"); err == nil {
		t.Fatalf("unknown tier accepted")
	}
}

func TestLanguagesAndZoom(t *testing.T) {
	s := Default()
	s.OCRLanguage = "eng+deu"
	if got := s.Languages(); len(got) != 2 || got[1] != "deu" {
		t.Fatalf("languages = %v", got)
	}
	if ClampZoom(5) != MinZoom || ClampZoom(1000) != MaxZoom || ClampZoom(120) != 120 {
		t.Fatalf("zoom clamp broken")
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path)

	s, err := store.Load()
	if err != nil || s != Default() {
		t.Fatalf("missing file should load defaults: %+v, %v", s, err)
	}
	s.FillColor = ColorRed
	s.OutputQuality = QualityPrinter
	s.ZoomLevel = 150
	s.LastOpenedDirectory = "/scans"
	if err := store.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil || got != s {
		t.Fatalf("round trip = %+v, %v; want %+v", got, err, s)
	}

	bad := s
	bad.ZoomLevel = 0
	if err := store.Save(bad); err == nil {
		t.Fatalf("invalid settings saved")
	}
}

func TestJSONStoreFallsBack(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.json")
	os.WriteFile(corrupt, []byte("{not json"), 0o644)
	invalid := filepath.Join(dir, "invalid.json")
	os.WriteFile(invalid, []byte(`{"zoom_level": 9000}`), 0o644)
	partial := filepath.Join(dir, "partial.json")
	os.WriteFile(partial, []byte(`{"fill_color": "green", "unknown": 1}`), 0o644)

	for _, p := range []string{corrupt, invalid} {
		s, err := NewJSONStore(p).Load()
		if err == nil || s != Default() {
			t.Fatalf("%s: expected defaults and an error, got %+v, %v", p, s, err)
		}
		if LoadOrDefault(NewJSONStore(p), nil) != Default() {
			t.Fatalf("LoadOrDefault should fall back")
		}
	}
	s, err := NewJSONStore(partial).Load()
	if err != nil || s.FillColor != ColorGreen || s.OutputQuality != QualityEbook {
		t.Fatalf("partial record not merged over defaults: %+v, %v", s, err)
	}
}

func TestMemoryStore(t *testing.T) {
	var m MemoryStore
	s := Default()
	s.HistoryLength = 3
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := m.Load(); got.HistoryLength != 3 {
		t.Fatalf("unexpected load %+v", got)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if s, err := store.Load(); err != nil || s != Default() {
		t.Fatalf("empty db should load defaults: %+v, %v", s, err)
	}
	s := Default()
	s.OCRLanguage = "eng+fra"
	s.AutoSaveWorkFiles = false
	if err := store.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.ZoomLevel = 200
	if err := store.Save(s); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := store.Load()
	if err != nil || got != s {
		t.Fatalf("round trip = %+v, %v; want %+v", got, err, s)
	}
}
