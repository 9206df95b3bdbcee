package enhance

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// Denoise converts to greyscale and applies a 3x3 median filter. Edge pixels
// use the part of the window inside the image.
func Denoise(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	var window [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					window[n] = gray.Pix[yy*gray.Stride+xx*4]
					n++
				}
			}
			s := window[:n]
			sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
			v := s[n/2]
			i := y*dst.Stride + x*4
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = v, v, v
			dst.Pix[i+3] = gray.Pix[y*gray.Stride+x*4+3]
		}
	}
	return dst
}
