package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/redactkit/ocr"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestParseLanguages(t *testing.T) {
	out := []byte("List of available languages in \"/usr/share/tessdata/\" (3):\ndeu\neng\nosd\n")
	if got := parseLanguages(out); !reflect.DeepEqual(got, []string{"deu", "eng"}) {
		t.Fatalf("unexpected languages: %v", got)
	}
}

func TestRegistersDefaultEngine(t *testing.T) {
	if got := ocr.DefaultEngine().Name(); got != "tesseract" {
		t.Fatalf("default engine = %s", got)
	}
}

func TestTesseractEngineRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString("Hello PDF")

	in, err := ocr.InputFromImage(img, 0, ocr.WithLanguages("eng"), ocr.WithDPI(300))
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	eng := NewTesseractEngine()
	eng.MinConfidence = 0
	res, err := eng.Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	got := strings.ToLower(res.PlainText)
	if !strings.Contains(got, "hello") || !strings.Contains(got, "pdf") {
		t.Fatalf("unexpected OCR output: %q", res.PlainText)
	}
	if len(res.Words()) == 0 {
		t.Fatalf("expected word boxes")
	}
	if res.InputID != "page-0" {
		t.Fatalf("unexpected input id: %s", res.InputID)
	}
}

func TestAvailableLanguagesIncludesEnglish(t *testing.T) {
	ensureTesseractAvailable(t)
	langs, err := NewTesseractEngine().AvailableLanguages(context.Background())
	if err != nil {
		t.Fatalf("AvailableLanguages() error = %v", err)
	}
	for _, l := range langs {
		if l == "eng" {
			return
		}
	}
	t.Skipf("eng traineddata not installed: %v", langs)
}

func TestCropImageReportsOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	in, err := ocr.InputFromImage(img, 0)
	if err != nil {
		t.Fatal(err)
	}
	data, origin, err := cropImage(in.Image, &ocr.Region{X: 10, Y: 20, Width: 30, Height: 200})
	if err != nil {
		t.Fatalf("cropImage() error = %v", err)
	}
	if origin != image.Pt(10, 20) {
		t.Fatalf("unexpected origin %v", origin)
	}
	cropped, _, err := image.Decode(bytes.NewReader(data))
	if err != nil || cropped.Bounds().Dx() != 30 || cropped.Bounds().Dy() != 40 {
		t.Fatalf("unexpected crop %v, %v", cropped, err)
	}

	if _, _, err := cropImage(in.Image, &ocr.Region{X: 500, Y: 500, Width: 5, Height: 5}); err == nil {
		t.Fatalf("expected error for region outside the image")
	}
	if same, origin, _ := cropImage(in.Image, nil); !bytes.Equal(same, in.Image) || origin != (image.Point{}) {
		t.Fatalf("nil region must pass the image through")
	}
}

func TestRegionAndConfidence(t *testing.T) {
	r := region(image.Rect(5, 6, 15, 26))
	if r != (ocr.Region{X: 5, Y: 6, Width: 10, Height: 20}) {
		t.Fatalf("unexpected region %+v", r)
	}
	words := []ocr.TextWord{{Confidence: 0.5}, {Confidence: 1}}
	if got := meanConfidence(words); got != 0.75 {
		t.Fatalf("meanConfidence = %v", got)
	}
	if meanConfidence(nil) != 0 {
		t.Fatalf("empty confidence must be 0")
	}
}
