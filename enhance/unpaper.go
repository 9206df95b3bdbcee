package enhance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// ErrUnpaperMissing is returned when the unpaper binary is not installed.
var ErrUnpaperMissing = errors.New("unpaper not found in PATH")

// Unpaper runs the external unpaper tool on a page raster.
type Unpaper struct {
	Binary  string
	Timeout time.Duration
}

func NewUnpaper() *Unpaper {
	return &Unpaper{Binary: "unpaper", Timeout: 30 * time.Second}
}

// Available reports whether the binary can be found.
func (u *Unpaper) Available() bool {
	_, err := exec.LookPath(u.Binary)
	return err == nil
}

// Process cleans img for a single-page layout on the given paper format.
func (u *Unpaper) Process(img *image.NRGBA, paper string) (*image.NRGBA, error) {
	if !u.Available() {
		return nil, ErrUnpaperMissing
	}
	if paper == "" {
		paper = "a4"
	}
	dir, err := os.MkdirTemp("", "redactkit-unpaper-*")
	if err != nil {
		return nil, fmt.Errorf("unpaper temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	in, out := filepath.Join(dir, "in.png"), filepath.Join(dir, "out.png")
	if err := imaging.Save(img, in); err != nil {
		return nil, fmt.Errorf("unpaper input: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), u.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, u.Binary,
		"--layout", "single",
		"--paper", paper,
		"--no-deskew",
		"--no-border-align",
		in, out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("unpaper: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	cleaned, err := imaging.Open(out)
	if err != nil {
		return nil, fmt.Errorf("unpaper output: %w", err)
	}
	return imaging.Clone(cleaned), nil
}
