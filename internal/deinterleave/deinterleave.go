// Package deinterleave converts packed Bayer sensor pixels into four
// planar half-resolution color channels, padded to a multiple of 2^L by
// edge-clamp replication, plus a luma preview.
package deinterleave

import (
	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
)

// Planes holds the four deinterleaved CFA-position planes, in canonical
// order: plane 0 is the sensor's top-left CFA position, 1 top-right, 2
// bottom-left, 3 bottom-right. Each plane is (halfWidth+extendX,
// halfHeight+extendY).
type Planes struct {
	Width, Height int // padded dimensions, shared by all four planes
	Plane         [4]rawmath.Grid
	Preview       []uint8 // luma preview at (Width, Height), one byte/pixel
}

// Options controls one deinterleave call. Sensor arrangement plays no
// part here: plane extraction is purely positional (see cfaOffsets), and
// only becomes color-aware downstream, in internal/tonemap and internal/dng.
type Options struct {
	RowStride             int
	HalfWidth, HalfHeight int
	ExtendX, ExtendY      int // total padding added to width/height (both halves)
	WhiteLevel            int
	BlackLevel            [4]int
	ScalePreview          float64 // not read by Deinterleave: the luma preview is always emitted unscaled, at the padded plane size
}

// cfaOffsets returns, for each of the four canonical output planes, the
// (x,y) offset of that tile position within a 2x2 tile: plane 0 is
// always the tile's top-left sample, 1 top-right, 2 bottom-left, 3
// bottom-right. This is independent of sensor arrangement — which color
// lands on which plane depends on the arrangement, but tile position
// doesn't. Callers that need to know which plane holds R/G/G/B for a
// given arrangement do that lookup themselves (see internal/tonemap's
// cfaRoles and internal/dng's cfaReorder).
func cfaOffsets() [4][2]int {
	return [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
}

// Deinterleave reads raw10/raw16 packed pixels from a locked buffer and
// emits the four planes plus a preview. It rejects unsupported pixel
// formats, non-positive dimensions and negative extensions.
func Deinterleave(format rawburst.PixelFormat, data []byte, opts Options) (Planes, error) {
	if opts.HalfWidth <= 0 || opts.HalfHeight <= 0 {
		return Planes{}, rawburst.InvalidInputf("deinterleave.Deinterleave", "halfWidth*halfHeight == 0")
	}
	if opts.ExtendX < 0 || opts.ExtendY < 0 {
		return Planes{}, rawburst.InvalidInputf("deinterleave.Deinterleave", "negative extend (%d,%d)", opts.ExtendX, opts.ExtendY)
	}

	var read func([]byte, int) uint16
	switch format {
	case rawburst.PixelFormatRaw10:
		read = readRaw10
	case rawburst.PixelFormatRaw16, rawburst.PixelFormatYUV420Bayer:
		read = readRaw16
	default:
		return Planes{}, rawburst.InvalidInputf("deinterleave.Deinterleave", "unsupported pixel format %v", format)
	}

	w := opts.HalfWidth + opts.ExtendX
	h := opts.HalfHeight + opts.ExtendY
	offs := cfaOffsets()

	out := Planes{Width: w, Height: h}
	for p := 0; p < 4; p++ {
		out.Plane[p] = rawmath.NewGrid(w, h)
	}

	for y := 0; y < opts.HalfHeight; y++ {
		for x := 0; x < opts.HalfWidth; x++ {
			for p := 0; p < 4; p++ {
				sx := 2*x + offs[p][0]
				sy := 2*y + offs[p][1]
				v := read(rowAt(data, sy, opts.RowStride, format), sx)
				out.Plane[p].Set(x, y, float32(v))
			}
		}
	}

	// Edge-clamp replication into the padded region.
	for p := 0; p < 4; p++ {
		g := out.Plane[p]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if x < opts.HalfWidth && y < opts.HalfHeight {
					continue
				}
				sx, sy := x, y
				if sx >= opts.HalfWidth {
					sx = opts.HalfWidth - 1
				}
				if sy >= opts.HalfHeight {
					sy = opts.HalfHeight - 1
				}
				g.Set(x, y, g.At(sx, sy))
			}
		}
	}

	out.Preview = buildPreview(out, opts)
	return out, nil
}

func rowAt(data []byte, row, rowStride int, format rawburst.PixelFormat) []byte {
	start := row * rowStride
	return data[start:]
}

// readRaw10 unpacks one 10-bit-per-pixel MIPI RAW10 sample. Every group of
// 4 pixels is packed into 5 bytes (4 high-byte samples + 1 low-bits byte).
func readRaw10(row []byte, x int) uint16 {
	group := x / 4
	idx := x % 4
	base := group * 5
	hi := row[base+idx]
	lowByte := row[base+4]
	lo := (lowByte >> (uint(idx) * 2)) & 0x3
	return uint16(hi)<<2 | uint16(lo)
}

func readRaw16(row []byte, x int) uint16 {
	i := x * 2
	return uint16(row[i]) | uint16(row[i+1])<<8
}

// buildPreview derives an 8-bit luma preview from a linear combination of
// the four channels (0.25 each, all four weighted equally).
func buildPreview(p Planes, opts Options) []uint8 {
	preview := make([]uint8, p.Width*p.Height)
	wl := float64(opts.WhiteLevel)
	if wl <= 0 {
		wl = 1023
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			sum := 0.0
			for c := 0; c < 4; c++ {
				v := float64(p.Plane[c].At(x, y)) - float64(opts.BlackLevel[c])
				if v < 0 {
					v = 0
				}
				sum += v
			}
			lin := sum / (4 * (wl - float64(opts.BlackLevel[0])))
			if lin > 1 {
				lin = 1
			}
			preview[y*p.Width+x] = uint8(lin * 255)
		}
	}
	return preview
}
