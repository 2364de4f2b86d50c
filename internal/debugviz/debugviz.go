// Package debugviz dumps intermediate grids (wavelet sub-bands, flow
// fields, previews) as labeled grayscale PNGs, for pipeline debugging.
// Grounded directly on pkg/emath/floatgrid.go's FloatGrid.ToImg: min/max
// normalize, gamma-expand for perceptual grayscale, draw a title with gg.
package debugviz

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/abworrall/rawburst/internal/rawmath"
)

// gammaExpand mirrors emath.GammaExpand_F64's sRGB-ish gamma curve used
// to make normalized debug grayscale look right to the eye.
func gammaExpand(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Pow(v, 1/2.2)
}

// SaveGrid writes grid to filename as a title-labeled grayscale PNG,
// normalized to the grid's own min/max range.
func SaveGrid(grid rawmath.Grid, title, filename string) error {
	min, max := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, v := range grid.Vals {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA64(image.Rect(0, 0, grid.W, grid.H))
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			norm := float64((grid.At(x, y) - min) / span)
			gray := gammaExpand(norm)
			c := color.RGBA64{
				R: uint16(gray * 65535),
				G: uint16(gray * 65535),
				B: uint16(gray * 65535),
				A: 0xFFFF,
			}
			img.Set(x, y, c)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}

// SaveFlowField renders a flow field's magnitude as a grayscale PNG,
// reusing SaveGrid's normalization.
func SaveFlowField(u, v rawmath.Grid, title, filename string) error {
	mag := rawmath.NewGrid(u.W, u.H)
	for i := range mag.Vals {
		mag.Vals[i] = float32(math.Hypot(float64(u.Vals[i]), float64(v.Vals[i])))
	}
	return SaveGrid(mag, title, filename)
}
