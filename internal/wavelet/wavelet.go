// Package wavelet implements the separable CDF 9/7 forward/inverse
// transform used to build and collapse the per-channel wavelet pyramid,
// plus the MAD noise-sigma estimator on a level's HH sub-band.
package wavelet

import (
	"math"
	"sort"

	"github.com/abworrall/rawburst/internal/rawmath"
)

// NumLevels is the depth of the wavelet pyramid.
const NumLevels = 6

// SubBand indexes the four sub-bands of one pyramid level.
type SubBand int

const (
	LL SubBand = iota
	LH
	HL
	HH
)

// Band is one sub-band's coefficient grid plus its fusion weight
// accumulator.
type Band struct {
	Value  rawmath.Grid
	Weight rawmath.Grid
}

// Level is one pyramid level: four sub-bands at half the resolution of
// the level above it (or of the source plane, for level 0).
type Level struct {
	W, H  int
	Bands [4]Band
}

// Pyramid is the full L=6 level wavelet decomposition of one color plane.
type Pyramid struct {
	Levels [NumLevels]Level
}

// Forward decomposes plane into a Pyramid. plane's dimensions must be
// divisible by 2^NumLevels (guaranteed by the deinterleaver's padding
// invariant). Weight accumulators are seeded at 1.0, representing the
// reference frame's own baseline contribution before any fusion runs.
func Forward(plane rawmath.Grid) Pyramid {
	var pyr Pyramid
	current := plane
	for lvl := 0; lvl < NumLevels; lvl++ {
		ll, lh, hl, hh, w, h := decomposeOnce(current)
		level := Level{W: w, H: h}
		values := [4]rawmath.Grid{ll, lh, hl, hh}
		for b := 0; b < 4; b++ {
			level.Bands[b] = Band{Value: values[b], Weight: onesGrid(w, h)}
		}
		pyr.Levels[lvl] = level
		current = ll
	}
	return pyr
}

func onesGrid(w, h int) rawmath.Grid {
	g := rawmath.NewGrid(w, h)
	for i := range g.Vals {
		g.Vals[i] = 1
	}
	return g
}

// decomposeOnce runs one level of the separable transform: rows first,
// then columns, splitting into the four quadrants LL (top-left, low in
// both directions), LH (top-right), HL (bottom-left), HH (bottom-right,
// high in both directions - the sub-band the noise estimator reads).
func decomposeOnce(g rawmath.Grid) (ll, lh, hl, hh rawmath.Grid, halfW, halfH int) {
	w, h := g.W, g.H
	halfW, halfH = w/2, h/2

	rowXformed := rawmath.NewGrid(w, h)
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			row[x] = float64(g.At(x, y))
		}
		low, high := forward1D(row)
		for x := 0; x < halfW; x++ {
			rowXformed.Set(x, y, float32(low[x]))
			rowXformed.Set(halfW+x, y, float32(high[x]))
		}
	}

	full := rawmath.NewGrid(w, h)
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = float64(rowXformed.At(x, y))
		}
		low, high := forward1D(col)
		for y := 0; y < halfH; y++ {
			full.Set(x, y, float32(low[y]))
			full.Set(x, halfH+y, float32(high[y]))
		}
	}

	ll = rawmath.NewGrid(halfW, halfH)
	lh = rawmath.NewGrid(halfW, halfH)
	hl = rawmath.NewGrid(halfW, halfH)
	hh = rawmath.NewGrid(halfW, halfH)
	for y := 0; y < halfH; y++ {
		for x := 0; x < halfW; x++ {
			ll.Set(x, y, full.At(x, y))
			lh.Set(x, y, full.At(halfW+x, y))
			hl.Set(x, y, full.At(x, halfH+y))
			hh.Set(x, y, full.At(halfW+x, halfH+y))
		}
	}
	return ll, lh, hl, hh, halfW, halfH
}

// recomposeOnce is the exact inverse of decomposeOnce.
func recomposeOnce(ll, lh, hl, hh rawmath.Grid) rawmath.Grid {
	halfW, halfH := ll.W, ll.H
	w, h := halfW*2, halfH*2

	full := rawmath.NewGrid(w, h)
	for y := 0; y < halfH; y++ {
		for x := 0; x < halfW; x++ {
			full.Set(x, y, ll.At(x, y))
			full.Set(halfW+x, y, lh.At(x, y))
			full.Set(x, halfH+y, hl.At(x, y))
			full.Set(halfW+x, halfH+y, hh.At(x, y))
		}
	}

	rowXformed := rawmath.NewGrid(w, h)
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < halfH; y++ {
			col[y] = float64(full.At(x, y))
			col[halfH+y] = float64(full.At(x, halfH+y))
		}
		out := inverse1D(col[:halfH], col[halfH:])
		for y := 0; y < h; y++ {
			rowXformed.Set(x, y, float32(out[y]))
		}
	}

	g := rawmath.NewGrid(w, h)
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		for x := 0; x < halfW; x++ {
			row[x] = float64(rowXformed.At(x, y))
			row[halfW+x] = float64(rowXformed.At(halfW+x, y))
		}
		out := inverse1D(row[:halfW], row[halfW:])
		for x := 0; x < w; x++ {
			g.Set(x, y, float32(out[x]))
		}
	}
	return g
}

// Inverse collapses a Pyramid back into a spatial-domain plane, applying
// a soft-threshold shrinkage tau to the three detail sub-bands:
// sign(c)*max(0,|c|-tau). Each band's coefficients are first normalized
// by their weight accumulator (Value/Weight), undoing the fusion
// kernel's weighted-sum accumulation.
// tau is the channel's single shrinkage threshold (spatialWeight *
// noiseSigma_k / sqrt(M)); the same threshold is applied at every
// pyramid level, since noiseSigma_k is a per-channel quantity, not a
// per-level one.
func Inverse(pyr Pyramid, tau float64) rawmath.Grid {
	current := normalizeBand(pyr.Levels[NumLevels-1].Bands[LL])
	for lvl := NumLevels - 1; lvl >= 0; lvl-- {
		level := pyr.Levels[lvl]
		lh := shrink(normalizeBand(level.Bands[LH]), tau)
		hl := shrink(normalizeBand(level.Bands[HL]), tau)
		hh := shrink(normalizeBand(level.Bands[HH]), tau)
		current = recomposeOnce(current, lh, hl, hh)
	}
	return current
}

func normalizeBand(b Band) rawmath.Grid {
	out := rawmath.NewGrid(b.Value.W, b.Value.H)
	for i := range out.Vals {
		w := b.Weight.Vals[i]
		if w == 0 {
			w = 1
		}
		out.Vals[i] = b.Value.Vals[i] / w
	}
	return out
}

func shrink(g rawmath.Grid, tau float64) rawmath.Grid {
	if tau <= 0 {
		return g
	}
	out := rawmath.NewGrid(g.W, g.H)
	t := float32(tau)
	for i, c := range g.Vals {
		mag := c
		if mag < 0 {
			mag = -mag
		}
		mag -= t
		if mag < 0 {
			mag = 0
		}
		if c < 0 {
			mag = -mag
		}
		out.Vals[i] = mag
	}
	return out
}

// NoiseSigma estimates the per-channel noise sigma from a level's HH
// sub-band via the MAD estimator: median(|HH|)/0.6745.
func NoiseSigma(level Level) float64 {
	hh := level.Bands[HH].Value
	abs := make([]float64, len(hh.Vals))
	for i, v := range hh.Vals {
		abs[i] = math.Abs(float64(v))
	}
	sort.Float64s(abs)
	if len(abs) == 0 {
		return 0
	}
	median := abs[len(abs)/2]
	if len(abs)%2 == 0 && len(abs) > 1 {
		median = (abs[len(abs)/2-1] + abs[len(abs)/2]) / 2
	}
	return median / 0.6745
}
