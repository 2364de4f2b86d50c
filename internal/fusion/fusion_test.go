package fusion

import (
	"math"
	"testing"

	"github.com/abworrall/rawburst/internal/flow"
	"github.com/abworrall/rawburst/internal/rawmath"
	"github.com/abworrall/rawburst/internal/wavelet"
)

func TestSelectRegime(t *testing.T) {
	tests := []struct {
		name              string
		iso               int
		exposureTimeNanos int64
		flowStdDev        float64
		want              Regime
	}{
		{"high iso long exposure still scene", 1600, 20_000_000, 2, Regime{16, 16}},
		{"low iso short exposure", 100, 1_000_000, 5, Regime{4, 4}},
		{"heavy motion", 400, 5_000_000, 20, Regime{2, 8}},
		{"default", 400, 5_000_000, 5, Regime{16, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectRegime(tt.iso, tt.exposureTimeNanos, tt.flowStdDev)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func flatPyramid(w, h int, v float32) wavelet.Pyramid {
	plane := rawmath.NewGrid(w, h)
	for i := range plane.Vals {
		plane.Vals[i] = v
	}
	return wavelet.Forward(plane)
}

func zeroFlow(w, h int) flow.Field {
	return flow.Field{W: w, H: h, U: rawmath.NewGrid(w, h), V: rawmath.NewGrid(w, h)}
}

func TestFuse_IdenticalCandidateLeavesValueUnchanged(t *testing.T) {
	const w, h = 64, 64
	ref := flatPyramid(w, h, 100)
	cand := flatPyramid(w, h, 100)
	out := flatPyramid(w, h, 100)
	f := zeroFlow(w, h)

	Fuse(&ref, &out, cand, f, 1.0, Regime{DifferenceWeight: 16, Weight: 8}, true)

	lvl := out.Levels[wavelet.NumLevels-1]
	ll := lvl.Bands[wavelet.LL]
	for i := range ll.Value.Vals {
		got := ll.Value.Vals[i] / ll.Weight.Vals[i]
		refNorm := ref.Levels[wavelet.NumLevels-1].Bands[wavelet.LL].Value.Vals[i] / ref.Levels[wavelet.NumLevels-1].Bands[wavelet.LL].Weight.Vals[i]
		if math.Abs(float64(got-refNorm)) > 1e-3 {
			t.Errorf("position %d: got %v, want ~%v", i, got, refNorm)
		}
	}
}

func TestFuse_ResetOutputSeedsFromReference(t *testing.T) {
	const w, h = 64, 64
	ref := flatPyramid(w, h, 50)
	cand := flatPyramid(w, h, 50)
	var out wavelet.Pyramid
	f := zeroFlow(w, h)

	Fuse(&ref, &out, cand, f, 1.0, Regime{DifferenceWeight: 16, Weight: 8}, true)

	lvl0 := out.Levels[0].Bands[wavelet.LL]
	if len(lvl0.Value.Vals) == 0 {
		t.Fatal("expected out pyramid to be populated after resetOutput")
	}
}
