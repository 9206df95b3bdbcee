package enhance

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	analysisSize  = 800
	minForeground = 100
	minSkew       = 0.5
	maxSkew       = 20
)

// SkewAngle estimates the counter-clockwise rotation, in degrees, that
// straightens the dominant text direction. It reports false when there is
// too little foreground or the skew is negligible or implausibly large.
func SkewAngle(img image.Image) (float64, bool) {
	small := imaging.Grayscale(imaging.Fit(img, analysisSize, analysisSize, imaging.Box))
	threshold := otsu(imaging.Histogram(small))

	var n, sx, sy, sxx, syy, sxy float64
	b := small.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := small.Pix[(y-b.Min.Y)*small.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if int(row[x*4]) > threshold {
				continue
			}
			fx, fy := float64(x), float64(y)
			n++
			sx += fx
			sy += fy
			sxx += fx * fx
			syy += fy * fy
			sxy += fx * fy
		}
	}
	if n < minForeground {
		return 0, false
	}
	cxx := sxx/n - (sx/n)*(sx/n)
	cyy := syy/n - (sy/n)*(sy/n)
	cxy := sxy/n - (sx/n)*(sy/n)
	// Principal axis in image space, y pointing down.
	angle := 0.5 * math.Atan2(2*cxy, cxx-cyy) * 180 / math.Pi
	switch {
	case angle < -45:
		angle += 90
	case angle > 45:
		angle -= 90
	}
	if math.Abs(angle) <= minSkew || math.Abs(angle) >= maxSkew {
		return 0, false
	}
	return angle, true
}

// otsu picks the grey level that maximizes between-class variance of a
// normalized histogram.
func otsu(hist [256]float64) int {
	var total float64
	for i, p := range hist {
		total += float64(i) * p
	}
	var wB, sumB, best float64
	threshold := 127
	for t, p := range hist {
		wB += p
		if wB == 0 {
			continue
		}
		wF := 1 - wB
		if wF <= 0 {
			break
		}
		sumB += float64(t) * p
		mB := sumB / wB
		mF := (total - sumB) / wF
		if v := wB * wF * (mB - mF) * (mB - mF); v > best {
			best = v
			threshold = t
		}
	}
	return threshold
}
