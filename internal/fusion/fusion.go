// Package fusion blends a candidate frame's wavelet coefficients into an
// accumulated output pyramid using optical flow and a weight-regime
// table keyed on ISO, exposure time, and flow variance.
package fusion

import (
	"github.com/abworrall/rawburst/internal/flow"
	"github.com/abworrall/rawburst/internal/rawmath"
	"github.com/abworrall/rawburst/internal/wavelet"
)

// Regime is the (differenceWeight, weight) pair chosen once per
// candidate frame.
type Regime struct {
	DifferenceWeight float64
	Weight           float64
}

// SelectRegime picks the (differenceWeight, weight) pair for a candidate
// frame based on its capture conditions and measured motion.
func SelectRegime(iso int, exposureTimeNanos int64, flowStdDev float64) Regime {
	exposureMs := float64(exposureTimeNanos) / 1e6
	switch {
	case iso >= 800 && exposureMs >= 8 && flowStdDev < 10:
		return Regime{DifferenceWeight: 16, Weight: 16}
	case iso <= 200 && exposureMs <= 1.25:
		return Regime{DifferenceWeight: 4, Weight: 4}
	case flowStdDev > 10:
		return Regime{DifferenceWeight: 2, Weight: 8}
	default:
		return Regime{DifferenceWeight: 16, Weight: 8}
	}
}

// Fuse blends cand's coefficients into out, in place, for one CFA
// channel. When resetOutput is true, out is first initialized from ref
// (the first candidate's blend then runs against the reference itself);
// otherwise out already holds the running accumulation from prior
// candidates and is updated in place.
//
// noiseSigma is the channel's single noise sigma (from wavelet.NoiseSigma
// against ref's finest level HH sub-band). flowField maps reference-plane
// pixel coordinates to candidate coordinates, at the resolution of the
// deinterleaved (level-0-input) plane.
func Fuse(ref, out *wavelet.Pyramid, cand wavelet.Pyramid, flowField flow.Field, noiseSigma float64, regime Regime, resetOutput bool) {
	tau := noiseSigma * regime.DifferenceWeight
	for lvl := 0; lvl < wavelet.NumLevels; lvl++ {
		scale := 1 << uint(lvl+1)

		for b := 0; b < 4; b++ {
			refBand := ref.Levels[lvl].Bands[b]
			candBand := cand.Levels[lvl].Bands[b]
			outBand := &out.Levels[lvl].Bands[b]

			if resetOutput {
				outBand.Value = cloneGrid(refBand.Value)
				outBand.Weight = cloneGrid(refBand.Weight)
			}

			w, h := refBand.Value.W, refBand.Value.H
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					accumVal := outBand.Value.At(x, y)
					accumWeight := outBand.Weight.At(x, y)
					if accumWeight == 0 {
						accumWeight = 1
					}
					refAccumNormalized := accumVal / accumWeight

					fu, fv := sampleFlow(flowField, x*scale, y*scale)
					cx := float32(x) + fu/float32(scale)
					cy := float32(y) + fv/float32(scale)
					candVal := candBand.Value.Bilinear(cx, cy)

					diff := float64(candVal - refAccumNormalized)
					if diff < 0 {
						diff = -diff
					}
					alpha := 1.0
					if tau > 0 {
						alpha = 1 - diff/tau
						if alpha < 0 {
							alpha = 0
						}
						if alpha > 1 {
							alpha = 1
						}
					}

					blended := float32(alpha)*candVal + float32(1-alpha)*refAccumNormalized
					newWeight := accumWeight + float32(regime.Weight)
					newVal := accumVal + float32(regime.Weight)*blended

					outBand.Value.Set(x, y, newVal)
					outBand.Weight.Set(x, y, newWeight)
				}
			}
		}
	}
}

func sampleFlow(f flow.Field, x, y int) (float32, float32) {
	if x >= f.W {
		x = f.W - 1
	}
	if y >= f.H {
		y = f.H - 1
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return f.At(x, y)
}

func cloneGrid(g rawmath.Grid) rawmath.Grid {
	out := rawmath.NewGrid(g.W, g.H)
	copy(out.Vals, g.Vals)
	return out
}
