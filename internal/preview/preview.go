// Package preview renders the lower-cost tonemap variant used by the
// scene analyzer and by callers wanting a fast BGRA thumbnail: the same
// pixel pipeline as internal/tonemap, but at 1/2, 1/4 or 1/8 of half
// resolution and rotated/flipped for one of the four screen
// orientations. Grounded on pkg/eclipse/alignment.go's use of
// golang.org/x/image/draw for resampling.
package preview

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
	"github.com/abworrall/rawburst/internal/tonemap"
)

// Scale is one of the three supported downscale factors relative to
// half resolution.
type Scale int

const (
	Half    Scale = 2
	Quarter Scale = 4
	Eighth  Scale = 8
)

// Options selects one of the twelve (orientation, scale) variants.
type Options struct {
	Orientation rawburst.ScreenOrientation
	Scale       Scale
	Flipped     bool
}

// Render produces a BGRA preview. An invalid scale fails.
func Render(in tonemap.Input, opts Options) ([]byte, int, int, error) {
	switch opts.Scale {
	case Half, Quarter, Eighth:
	default:
		return nil, 0, 0, rawburst.InvalidInputf("preview.Render", "invalid scale %d", opts.Scale)
	}

	rgb, w, h, err := tonemap.Render(in)
	if err != nil {
		return nil, 0, 0, err
	}

	// tonemap.Render's output is full resolution (2x the plane); half
	// resolution is w/2 x h/2, and Scale divides that.
	targetW := w / (2 * int(opts.Scale))
	targetH := h / (2 * int(opts.Scale))
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	src := &image.RGBA{Pix: rgbToRGBA(rgb, w, h), Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	oriented := applyOrientation(dst, opts.Orientation, opts.Flipped)
	return rgbaToBGRA(oriented), oriented.Bounds().Dx(), oriented.Bounds().Dy(), nil
}

func rgbToRGBA(rgb []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		out[i*4+0] = rgb[i*3+0]
		out[i*4+1] = rgb[i*3+1]
		out[i*4+2] = rgb[i*3+2]
		out[i*4+3] = 0xff
	}
	return out
}

func rgbaToBGRA(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, b.Dx()*b.Dy()*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			r, g, bl, a := img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3]
			out[i], out[i+1], out[i+2], out[i+3] = bl, g, r, a
			i += 4
		}
	}
	return out
}

// applyOrientation rotates/flips per the intended mapping: downscale
// factor and orientation each select their own axis independently, with
// no fallthrough special-casing between them. Built as a single
// rawmath.Aff3 and applied via draw.CatmullRom.Transform, the same
// resample call internal/preview already uses for scaling; since every
// orientation here is an exact multiple of 90 degrees the interpolation
// always lands on the source pixel it started from.
func applyOrientation(src *image.RGBA, orientation rawburst.ScreenOrientation, flipped bool) *image.RGBA {
	b := src.Bounds()
	m, dstW, dstH := orientationMatrix(b.Dx(), b.Dy(), orientation)
	if flipped {
		m = flipMatrix(dstW).Mult(m)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Transform(dst, f64.Aff3(m), src, b, draw.Src, nil)
	return dst
}

// orientationMatrix returns the src-to-dst transform for one of the four
// screen orientations, plus the resulting image dimensions. Portrait and
// ReversePortrait swap width and height; the others don't.
func orientationMatrix(w, h int, orientation rawburst.ScreenOrientation) (rawmath.Aff3, int, int) {
	rot90 := rawmath.Identity().Translate(float64(h-1), 0).Mult(rawmath.Identity().Rotate90())
	rot180 := rawmath.Identity().Translate(float64(w-1), float64(h-1)).Mult(rawmath.Identity().Rotate180())

	switch orientation {
	case rawburst.Portrait:
		return rot90, h, w
	case rawburst.ReverseLandscape:
		return rot180, w, h
	case rawburst.ReversePortrait:
		return rot90.Mult(rot180), h, w
	default: // Landscape
		return rawmath.Identity(), w, h
	}
}

// flipMatrix mirrors a w-wide image about its vertical center line.
func flipMatrix(w int) rawmath.Aff3 {
	return rawmath.Identity().Translate(float64(w-1), 0).Mult(rawmath.Identity().FlipX())
}

// MeanLuminance is a small helper the scene analyzer's shadows estimator
// uses via a rawburst.RawImageMetadata-free closure over Render.
func MeanLuminance(bgra []byte) float64 {
	if len(bgra) == 0 {
		return 0
	}
	sum := 0.0
	n := len(bgra) / 4
	for i := 0; i < n; i++ {
		b := float64(bgra[i*4+0])
		g := float64(bgra[i*4+1])
		r := float64(bgra[i*4+2])
		sum += (0.2126*r + 0.7152*g + 0.0722*b) / 255
	}
	return sum / float64(n)
}
