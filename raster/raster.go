// Package raster turns source pages into bitmaps: PDF pages through
// poppler's pdftoppm, image files through imaging.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	rmodel "github.com/wudi/redactkit/model"
)

// ErrPageRange is returned for a page index outside the document.
var ErrPageRange = errors.New("page index out of range")

// Rasterizer renders one page of a PDF at scale (1 = 72 DPI) and reports
// the page's original size in points.
type Rasterizer interface {
	Render(ctx context.Context, path string, index int, scale float64) (*image.NRGBA, rmodel.Size, error)
	PageCount(ctx context.Context, path string) (int, error)
}

// Poppler renders with the pdftoppm binary. Page count and page sizes come
// from pdfcpu and are cached per file path.
type Poppler struct {
	Binary string

	mu   sync.Mutex
	dims map[string][]rmodel.Size
}

func NewPoppler() *Poppler {
	return &Poppler{Binary: "pdftoppm"}
}

// Available reports whether the pdftoppm binary can be found.
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

func (p *Poppler) binary() string {
	if p.Binary == "" {
		return "pdftoppm"
	}
	return p.Binary
}

func (p *Poppler) PageCount(ctx context.Context, path string) (int, error) {
	sizes, err := p.sizes(ctx, path)
	if err != nil {
		return 0, err
	}
	return len(sizes), nil
}

func (p *Poppler) Render(ctx context.Context, path string, index int, scale float64) (*image.NRGBA, rmodel.Size, error) {
	sizes, err := p.sizes(ctx, path)
	if err != nil {
		return nil, rmodel.Size{}, err
	}
	if index < 0 || index >= len(sizes) {
		return nil, rmodel.Size{}, fmt.Errorf("render page %d of %d: %w", index, len(sizes), ErrPageRange)
	}
	if scale <= 0 {
		scale = 1
	}
	dir, err := os.MkdirTemp("", "redactkit-render-*")
	if err != nil {
		return nil, rmodel.Size{}, fmt.Errorf("render temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	page := strconv.Itoa(index + 1)
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, p.binary(),
		"-f", page,
		"-l", page,
		"-r", strconv.FormatFloat(72*scale, 'f', 2, 64),
		"-png",
		"-singlefile",
		path,
		prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, rmodel.Size{}, ctx.Err()
		}
		return nil, rmodel.Size{}, fmt.Errorf("pdftoppm page %d: %w: %s", index, err, bytes.TrimSpace(stderr.Bytes()))
	}
	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, rmodel.Size{}, fmt.Errorf("read rendered page %d: %w", index, err)
	}
	return imaging.Clone(img), sizes[index], nil
}

func (p *Poppler) sizes(ctx context.Context, path string) ([]rmodel.Size, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.dims[path]; ok {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dims, err := api.PageDims(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read page sizes: %w", err)
	}
	sizes := make([]rmodel.Size, len(dims))
	for i, d := range dims {
		sizes[i] = rmodel.Size{Width: d.Width, Height: d.Height}
	}
	if p.dims == nil {
		p.dims = make(map[string][]rmodel.Size)
	}
	p.dims[path] = sizes
	return sizes, nil
}

// Forget drops cached page sizes for path, for files rewritten on disk.
func (p *Poppler) Forget(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.dims, path)
}

// DecodeImageFile reads a PNG, JPEG, GIF, BMP or TIFF file, honoring EXIF
// orientation. The size is the pixel size of the oriented image.
func DecodeImageFile(path string) (*image.NRGBA, rmodel.Size, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, rmodel.Size{}, fmt.Errorf("decode image: %w", err)
	}
	out := imaging.Clone(img)
	return out, rmodel.Size{Width: float64(out.Rect.Dx()), Height: float64(out.Rect.Dy())}, nil
}
