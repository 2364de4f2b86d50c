package scene

import (
	"testing"

	"github.com/abworrall/rawburst/internal/rawmath"
)

func TestEstimateGlobalNoiseSigma_MonotonicWithNoise(t *testing.T) {
	const w, h = 32, 32
	flat := rawmath.NewGrid(w, h)
	for i := range flat.Vals {
		flat.Vals[i] = 128
	}
	noisy := rawmath.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(128)
			if (x+y)%2 == 0 {
				v += 30
			} else {
				v -= 30
			}
			noisy.Set(x, y, v)
		}
	}

	flatSigma := EstimateGlobalNoiseSigma(flat)
	noisySigma := EstimateGlobalNoiseSigma(noisy)

	if flatSigma != 0 {
		t.Errorf("expected zero noise on a flat plane, got %v", flatSigma)
	}
	if !(noisySigma > flatSigma) {
		t.Errorf("expected noisy sigma (%v) > flat sigma (%v)", noisySigma, flatSigma)
	}
}

func TestEstimateSettings_BlacksNeverBelowFloor(t *testing.T) {
	const w, h = 16, 16
	dark := rawmath.NewGrid(w, h)
	for i := range dark.Vals {
		dark.Vals[i] = 0
	}

	got := EstimateSettings(dark)
	if got.Blacks < 0.02 {
		t.Errorf("got blacks %v, want >= 0.02 floor", got.Blacks)
	}
}

func TestEstimateShadows_StopsWhenGrowthPlateaus(t *testing.T) {
	calls := 0
	render := func(shadows float64) float64 {
		calls++
		if shadows <= 6 {
			return shadows // steep growth
		}
		return 6.01 // growth below the 3% threshold from here on
	}

	got := EstimateShadows(render)
	if got < 2 || got > 14 {
		t.Fatalf("got %v, want value in [2,14]", got)
	}
	if calls == 0 {
		t.Fatal("expected render to be called at least once")
	}
}

func TestEstimateExposureCompensation_ClippedHighlightsHaveLessHeadroom(t *testing.T) {
	const w, h = 16, 16
	unclipped := rawmath.NewGrid(w, h)
	for i := range unclipped.Vals {
		unclipped.Vals[i] = 128
	}
	clipped := rawmath.NewGrid(w, h)
	for i := range clipped.Vals {
		clipped.Vals[i] = 255
	}

	compUnclipped := EstimateExposureCompensation([3]rawmath.Grid{unclipped, unclipped, unclipped})
	compClipped := EstimateExposureCompensation([3]rawmath.Grid{clipped, clipped, clipped})

	if compClipped > compUnclipped {
		t.Errorf("expected clipped comp (%v) <= unclipped comp (%v): a scene already at white level has no exposure headroom left", compClipped, compUnclipped)
	}
}
