// Package tonemap implements the postprocess pixel pipeline from 4-plane
// linear Bayer to interleaved 8-bit sRGB, and the shared per-pixel core
// the preview renderer reuses at reduced resolution.
package tonemap

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/rawburst/internal/colorprofile"
	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
)

// Input bundles everything the pipeline needs for one frame.
type Input struct {
	Planes          [4]rawmath.Grid // canonical CFA order, half-res, padded
	OffsetX, OffsetY int            // crop, in plane pixels
	Frame           rawburst.RawImageMetadata
	Camera          rawburst.RawCameraMetadata
	Settings        rawburst.PostProcessSettings
	Profile         colorprofile.Profile
}

// rgbPlane is the merged, still-linear RGB image at plane (half)
// resolution, before the 2x block-replication that produces the
// Non-goals-mandated no-demosaic full-resolution output.
type rgbPlane struct {
	w, h    int
	r, g, b []float32
}

func newRGBPlane(w, h int) rgbPlane {
	return rgbPlane{w: w, h: h, r: make([]float32, w*h), g: make([]float32, w*h), b: make([]float32, w*h)}
}

func (p rgbPlane) at(x, y int) (float32, float32, float32) {
	i := y*p.w + x
	return p.r[i], p.g[i], p.b[i]
}
func (p rgbPlane) set(x, y int, r, g, b float32) {
	i := y*p.w + x
	p.r[i], p.g[i], p.b[i] = r, g, b
}

// Render runs the full pipeline and returns an interleaved 8-bit RGB
// image cropped to (2*(planeWidth-offsetX)) x (2*(planeHeight-offsetY)),
// where planeWidth/planeHeight are the padded plane dimensions.
func Render(in Input) (pix []byte, width, height int, err error) {
	plane := gradeAndMerge(in)
	whiteBalanceAndColorMatrix(plane, in.Profile)
	tonemapped := exposureAndCurve(plane, in.Settings)
	chromaAdjust(tonemapped, in.Settings)
	sharpen(tonemapped, in.Settings)
	pix, width, height = encode(tonemapped, in)
	return pix, width, height, nil
}

// cfaRoles answers, for a given sensor arrangement, which of the four
// positional planes (0=top-left tile sample, 1=top-right, 2=bottom-left,
// 3=bottom-right; see internal/deinterleave.cfaOffsets) holds red,
// green-at-top-right, green-at-bottom-left and blue. Numerically the
// same table as internal/dng's cfaReorder, which answers the same
// position-to-color question for the DNG mosaic writer.
func cfaRoles(arr rawburst.SensorArrangement) (r, g1, g2, b int) {
	switch arr {
	case rawburst.GRBG:
		return 1, 0, 3, 2
	case rawburst.GBRG:
		return 2, 0, 3, 1
	case rawburst.BGGR:
		return 3, 1, 2, 0
	default: // RGGB
		return 0, 1, 2, 3
	}
}

// gradeAndMerge reconstructs a per-plane-pixel RGB triple from the 4 CFA
// planes, after black-level subtraction, white-level normalization and
// lens-shading correction, all done plane-wise since blackLevel/
// lensShadingMap are indexed by CFA tile position, not by merged RGB
// channel. Which positional plane feeds R/G/G/B depends on the sensor's
// arrangement, per cfaRoles.
func gradeAndMerge(in Input) rgbPlane {
	w, h := in.Planes[0].W, in.Planes[0].H
	graded := [4]rawmath.Grid{}
	for c := 0; c < 4; c++ {
		graded[c] = rawmath.NewGrid(w, h)
		bl := float64(in.Camera.BlackLevel[c])
		denom := float64(in.Camera.WhiteLevel) - bl
		if denom <= 0 {
			denom = 1
		}
		lsm := in.Frame.LensShadingMap[c]
		lsmGrid := rawmath.Grid{W: lsm.Width, H: lsm.Height, Vals: lsm.Gain}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := (float64(in.Planes[c].At(x, y)) - bl) / denom
				gain := 1.0
				if lsm.Width > 0 && lsm.Height > 0 && len(lsm.Gain) > 0 {
					gain = float64(lsmGrid.BilinearScaled(x, y, w, h))
				}
				graded[c].Set(x, y, float32(v*gain))
			}
		}
	}

	rIdx, g1Idx, g2Idx, bIdx := cfaRoles(in.Camera.SensorArrangement)
	plane := newRGBPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := graded[rIdx].At(x, y)
			g := (graded[g1Idx].At(x, y) + graded[g2Idx].At(x, y)) / 2
			b := graded[bIdx].At(x, y)
			plane.set(x, y, r, g, b)
		}
	}
	return plane
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// whiteBalanceAndColorMatrix does steps 3-4: divide by cameraWhite, then
// apply cameraToSrgb.
func whiteBalanceAndColorMatrix(plane rgbPlane, profile colorprofile.Profile) {
	white := profile.CameraWhite
	if white[0] == 0 {
		white[0] = 1
	}
	if white[1] == 0 {
		white[1] = 1
	}
	if white[2] == 0 {
		white[2] = 1
	}
	m := profile.CameraToSrgb
	for i := range plane.r {
		v := rawmath.Vec3{
			float64(plane.r[i]) / white[0],
			float64(plane.g[i]) / white[1],
			float64(plane.b[i]) / white[2],
		}
		out := m.Apply(v)
		plane.r[i], plane.g[i], plane.b[i] = float32(out[0]), float32(out[1]), float32(out[2])
	}
}

// exposureAndCurve implements step 5: exposure scaling then the
// shadow-lift/tonemap curve, with contrast applied about 0.5.
func exposureAndCurve(plane rgbPlane, s rawburst.PostProcessSettings) rgbPlane {
	expScale := float32(math.Pow(2, s.Exposure))
	shadowLift := float32(s.Shadows / 100)
	blacks := float32(s.Blacks)
	whitePoint := float32(s.WhitePoint)
	if whitePoint <= 0 {
		whitePoint = 1
	}
	variance := float32(s.TonemapVariance)
	contrast := float32(s.Contrast)

	curve := func(v float32) float32 {
		v *= expScale
		v = v - blacks
		if v < 0 {
			v = 0
		}
		v /= whitePoint

		// Shadow lift: soft compression of the low end, strength scaled
		// by tonemapVariance so a variance of 0 disables it.
		if shadowLift > 0 {
			v = v + shadowLift*variance*(1-v)*v
		}

		v = (v-0.5)*contrast + 0.5
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return v
	}

	out := newRGBPlane(plane.w, plane.h)
	for i := range plane.r {
		out.r[i] = curve(plane.r[i])
		out.g[i] = curve(plane.g[i])
		out.b[i] = curve(plane.b[i])
	}
	return out
}

// chromaAdjust does step 6: Lab-space saturation (band-selective by hue)
// and edge-aware chroma smoothing.
func chromaAdjust(plane rgbPlane, s rawburst.PostProcessSettings) {
	type lab struct{ l, a, b float64 }
	labs := make([]lab, len(plane.r))
	for i := range plane.r {
		c := colorful.Color{R: float64(plane.r[i]), G: float64(plane.g[i]), B: float64(plane.b[i])}
		l, a, bb := c.Lab()
		labs[i] = lab{l, a, bb}
	}

	for i, v := range labs {
		hue := math.Atan2(v.b, v.a)
		sat := s.Saturation
		switch {
		case hue > math.Pi/4 && hue < 3*math.Pi/4:
			sat *= s.GreenSaturation
		case hue < -math.Pi/4 && hue > -3*math.Pi/4:
			sat *= s.BlueSaturation
		}
		labs[i].a *= sat
		labs[i].b *= sat
	}

	if s.ChromaEps > 0 {
		smoothed := make([]lab, len(labs))
		copy(smoothed, labs)
		w, h := plane.w, plane.h
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				sumA, sumB, sumW := 0.0, 0.0, 0.0
				for _, o := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := x+o[0], y+o[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := labs[ny*w+nx]
					lumaWeight := 1.0 / (1.0 + math.Abs(n.l-labs[i].l))
					sumA += n.a * lumaWeight
					sumB += n.b * lumaWeight
					sumW += lumaWeight
				}
				if sumW == 0 {
					continue
				}
				smoothed[i].a = labs[i].a*(1-s.ChromaEps) + (sumA/sumW)*s.ChromaEps
				smoothed[i].b = labs[i].b*(1-s.ChromaEps) + (sumB/sumW)*s.ChromaEps
			}
		}
		labs = smoothed
	}

	for i, v := range labs {
		c := colorful.Lab(v.l, v.a, v.b).Clamped()
		plane.r[i], plane.g[i], plane.b[i] = float32(c.R), float32(c.G), float32(c.B)
	}
}

// sharpen implements the multi-scale luminance unsharp-mask gains
// sharpen0/sharpen1 from step 6.
func sharpen(plane rgbPlane, s rawburst.PostProcessSettings) {
	if s.Sharpen0 == 0 && s.Sharpen1 == 0 {
		return
	}
	w, h := plane.w, plane.h
	luma := make([]float32, w*h)
	for i := range luma {
		luma[i] = 0.2126*plane.r[i] + 0.7152*plane.g[i] + 0.0722*plane.b[i]
	}

	blur := func(radius int) []float32 {
		out := make([]float32, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum, n := float32(0), 0
				for dy := -radius; dy <= radius; dy++ {
					for dx := -radius; dx <= radius; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						sum += luma[ny*w+nx]
						n++
					}
				}
				out[y*w+x] = sum / float32(n)
			}
		}
		return out
	}

	blur0 := blur(1)
	blur1 := blur(3)
	g0 := float32(s.Sharpen0)
	g1 := float32(s.Sharpen1)
	for i := range luma {
		delta := g0*(luma[i]-blur0[i]) + g1*(luma[i]-blur1[i])
		newLuma := luma[i] + delta
		scale := float32(1)
		if luma[i] > 1e-4 {
			scale = newLuma / luma[i]
		}
		plane.r[i] *= scale
		plane.g[i] *= scale
		plane.b[i] *= scale
	}
}

// encode implements steps 7-8: gamma encode, clamp to 8-bit, replicate
// each plane pixel to its 2x2 output block (no demosaic interpolation),
// and crop (offsetX,offsetY) plane pixels off the right and bottom edges,
// where the deinterleaver placed its padding.
func encode(plane rgbPlane, in Input) ([]byte, int, int) {
	gamma := in.Settings.Gamma
	if gamma <= 0 {
		gamma = 2.2
	}
	invGamma := 1 / gamma

	fullW := 2 * (plane.w - in.OffsetX)
	fullH := 2 * (plane.h - in.OffsetY)
	if fullW < 0 {
		fullW = 0
	}
	if fullH < 0 {
		fullH = 0
	}
	pix := make([]byte, fullW*fullH*3)

	toByte := func(v float32) byte {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		enc := math.Pow(float64(v), invGamma)
		return byte(enc*255 + 0.5)
	}

	for y := 0; y < plane.h-in.OffsetY; y++ {
		for x := 0; x < plane.w-in.OffsetX; x++ {
			r, g, b := plane.at(x, y)
			rb, gb, bb := toByte(r), toByte(g), toByte(b)
			ox := 2 * x
			oy := 2 * y
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					i := ((oy+dy)*fullW + (ox + dx)) * 3
					pix[i], pix[i+1], pix[i+2] = rb, gb, bb
				}
			}
		}
	}
	return pix, fullW, fullH
}
