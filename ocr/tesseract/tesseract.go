// Package tesseract registers a gosseract-backed engine as the default OCR
// provider on import.
package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/redactkit/ocr"
)

func init() {
	ocr.SetDefaultEngine(NewTesseractEngine())
}

// TesseractEngine implements Engine and LanguageLister using the
// gosseract client. Words below MinConfidence (0..1) are dropped so that
// noise in scanned margins does not end up in the text layer.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	// Binary is the tesseract executable used to list languages.
	Binary        string
	MinConfidence float64
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient, Binary: "tesseract", MinConfidence: 0.3}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image input.
func (e *TesseractEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	c := e.clientFactory()
	defer c.Close()
	return e.recognizeWithClient(ctx, c, in)
}

func (e *TesseractEngine) recognizeWithClient(ctx context.Context, c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	imgData, origin, err := cropImage(in.Image, in.Region)
	if err != nil {
		return ocr.Result{}, err
	}
	if err := c.SetImageFromBytes(imgData); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := configure(c, in.Metadata); err != nil {
		return ocr.Result{}, err
	}

	lines, err := e.extractLines(c, origin)
	if err != nil {
		return ocr.Result{}, err
	}
	var words []ocr.TextWord
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		words = append(words, l.Words...)
		texts = append(texts, l.Text)
	}
	plain := strings.Join(texts, "\n")
	block := ocr.TextBlock{Text: plain, Bounds: mergeBounds(words), Lines: lines, Confidence: meanConfidence(words)}
	return ocr.Result{
		InputID:   in.ID,
		PlainText: plain,
		Blocks:    []ocr.TextBlock{block},
	}, nil
}

// configure applies engine-specific metadata. The page segmentation mode
// goes through the dedicated API; everything else is a plain variable.
func configure(c *gosseract.Client, meta map[string]string) error {
	for k, v := range meta {
		if k == "tessedit_pageseg_mode" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("page segmentation mode %q: %w", v, err)
			}
			if err := c.SetPageSegMode(gosseract.PageSegMode(n)); err != nil {
				return fmt.Errorf("set page segmentation: %w", err)
			}
			continue
		}
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}

// extractLines groups word boxes into text lines by the line box that
// contains each word's center. Coordinates are shifted by origin so they
// refer to the full page image.
func (e *TesseractEngine) extractLines(c *gosseract.Client, origin image.Point) ([]ocr.TextLine, error) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word boxes: %w", err)
	}
	lineBoxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		lineBoxes = nil
	}
	lines := make([]ocr.TextLine, len(lineBoxes))
	for i, lb := range lineBoxes {
		lines[i].Bounds = region(lb.Box.Add(origin))
	}
	var orphans []ocr.TextWord
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		conf := b.Confidence / 100
		if text == "" || conf < e.MinConfidence {
			continue
		}
		w := ocr.TextWord{Text: text, Bounds: region(b.Box.Add(origin)), Confidence: conf}
		center := image.Pt(b.Box.Min.X+b.Box.Dx()/2, b.Box.Min.Y+b.Box.Dy()/2)
		placed := false
		for i, lb := range lineBoxes {
			if center.In(lb.Box) {
				lines[i].Words = append(lines[i].Words, w)
				placed = true
				break
			}
		}
		if !placed {
			orphans = append(orphans, w)
		}
	}
	if len(orphans) > 0 {
		lines = append(lines, ocr.TextLine{Bounds: mergeBounds(orphans), Words: orphans})
	}
	out := lines[:0]
	for _, l := range lines {
		if len(l.Words) == 0 {
			continue
		}
		parts := make([]string, len(l.Words))
		for i, w := range l.Words {
			parts[i] = w.Text
		}
		l.Text = strings.Join(parts, " ")
		l.Confidence = meanConfidence(l.Words)
		out = append(out, l)
	}
	return out, nil
}

func region(r image.Rectangle) ocr.Region {
	return ocr.Region{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}

func meanConfidence(words []ocr.TextWord) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

func mergeBounds(words []ocr.TextWord) ocr.Region {
	if len(words) == 0 {
		return ocr.Region{}
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	var maxX, maxY float64
	for _, w := range words {
		minX = math.Min(minX, w.Bounds.X)
		minY = math.Min(minY, w.Bounds.Y)
		maxX = math.Max(maxX, w.Bounds.X+w.Bounds.Width)
		maxY = math.Max(maxY, w.Bounds.Y+w.Bounds.Height)
	}
	return ocr.Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// cropImage cuts region out of the encoded image and returns the crop with
// its top-left corner in page coordinates.
func cropImage(data []byte, r *ocr.Region) ([]byte, image.Point, error) {
	if r == nil || r.IsEmpty() {
		return data, image.Point{}, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode for region: %w", err)
	}
	rect := image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, image.Point{}, fmt.Errorf("region outside image bounds")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.PNG); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), rect.Min, nil
}

// AvailableLanguages runs `tesseract --list-langs` and returns the installed
// language codes, without the osd pseudo-language.
func (e *TesseractEngine) AvailableLanguages(ctx context.Context) ([]string, error) {
	bin := e.Binary
	if bin == "" {
		bin = "tesseract"
	}
	out, err := exec.CommandContext(ctx, bin, "--list-langs").Output()
	if err != nil {
		return nil, fmt.Errorf("list tesseract languages: %w", err)
	}
	return parseLanguages(out), nil
}

func parseLanguages(out []byte) []string {
	var langs []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List of available languages") || line == "osd" {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}
