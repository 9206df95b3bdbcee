package ocr

import (
	"image"
	"reflect"
	"testing"
)

func TestInputFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	region := Region{X: 0, Y: 0, Width: 1, Height: 1}

	in, err := InputFromImage(
		img, 2,
		WithLanguages("eng", "spa"),
		WithRegion(region),
		WithDPI(300),
		WithCharWhitelist("abc"),
	)
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	if in.Format != ImageFormatPNG {
		t.Fatalf("unexpected format: %v", in.Format)
	}
	if in.PageIndex != 2 || in.ID != "page-2" {
		t.Fatalf("unexpected identity: %s / %d", in.ID, in.PageIndex)
	}
	if len(in.Image) == 0 {
		t.Fatalf("expected encoded image data")
	}
	if !reflect.DeepEqual(in.Languages, []string{"eng", "spa"}) {
		t.Fatalf("unexpected languages: %+v", in.Languages)
	}
	if in.Region == nil || *in.Region != region {
		t.Fatalf("unexpected region: %#v", in.Region)
	}
	if in.DPI != 300 {
		t.Fatalf("unexpected dpi: %d", in.DPI)
	}
	if in.Metadata["tessedit_char_whitelist"] != "abc" {
		t.Fatalf("tuning option not applied: %+v", in.Metadata)
	}
}

func TestInputFromEmptyImage(t *testing.T) {
	if _, err := InputFromImage(image.NewNRGBA(image.Rectangle{}), 0); err == nil {
		t.Fatalf("expected error for empty image")
	}
}

func TestWithRegionClearsEmpty(t *testing.T) {
	in := Input{Region: &Region{X: 1, Y: 1, Width: 2, Height: 2}}
	WithRegion(Region{})(&in)
	if in.Region != nil {
		t.Fatalf("expected nil region for empty input, got %#v", in.Region)
	}
}

func TestResultWords(t *testing.T) {
	res := Result{Blocks: []TextBlock{
		{Lines: []TextLine{{Words: []TextWord{{Text: "a"}, {Text: "b"}}}}},
		{Lines: []TextLine{{Words: []TextWord{{Text: "c"}}}}},
	}}
	var got []string
	for _, w := range res.Words() {
		got = append(got, w.Text)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected words: %v", got)
	}
}
