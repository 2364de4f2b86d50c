// Package scene provides the histogram-based estimators the tonemap
// stage's defaults come from when a caller does not override them
// explicitly: shadows, blacks, white point, exposure compensation, scene
// luminance, and a global noise sigma.
package scene

import (
	"math"

	"github.com/abworrall/rawburst/internal/rawmath"
)

const (
	numBins = 255
	binMax  = 256.0
)

// bucketedHistogram counts samples into numBins buckets over [0,binMax).
// Hand-rolled rather than built on skypies/util/histogram.Histogram
// (used the same way for luminance bucketing in pkg/estack/combiners.go):
// that type's only demonstrated use there is on its write side
// (`.Add(...)`), with no read/percentile accessor exercised anywhere to
// build the bin-walk logic below against.
type bucketedHistogram struct {
	counts [numBins]int
	total  int
}

func newBucketedHistogram() *bucketedHistogram {
	return &bucketedHistogram{}
}

func (h *bucketedHistogram) add(v float64) {
	bin := int(v * numBins / binMax)
	if bin < 0 {
		bin = 0
	}
	if bin >= numBins {
		bin = numBins - 1
	}
	h.counts[bin]++
	h.total++
}

func binValue(bin int) float64 {
	return float64(bin) * binMax / numBins
}

// EstimateExposureCompensation computes a 3-channel histogram over a
// linearized preview (three planes, one per RGB-ish channel scaled to
// [0,256)) and returns the exposure compensation implied by clipping.
func EstimateExposureCompensation(channels [3]rawmath.Grid) float64 {
	w, h := channels[0].W, channels[0].H
	threshold := 1e-4 * float64(w*h) / 4

	maxComp := math.Inf(-1)
	for c := 0; c < 3; c++ {
		hist := newBucketedHistogram()
		for _, v := range channels[c].Vals {
			hist.add(float64(v))
		}
		accum := 0
		bin := numBins - 1
		for ; bin >= 0; bin-- {
			accum += hist.counts[bin]
			if float64(accum) > threshold {
				break
			}
		}
		if bin < 0 {
			bin = 0
		}
		comp := math.Log2(float64(numBins) / float64(bin+1))
		if comp > maxComp {
			maxComp = comp
		}
	}
	if math.IsInf(maxComp, -1) {
		return 0
	}
	return maxComp
}

// RenderLuminanceFunc renders a 1/8-scale preview with the given shadows
// setting applied and returns its mean luminance. Supplied by the
// orchestrator so this package stays decoupled from internal/tonemap.
type RenderLuminanceFunc func(shadows float64) float64

// EstimateShadows sweeps shadows in {2,4,...,14}, stopping once the
// mean-luminance growth between steps drops below 3%.
func EstimateShadows(render RenderLuminanceFunc) float64 {
	prev := 0.0
	last := 2.0
	for shadows := 2.0; shadows <= 14; shadows += 2 {
		l := render(shadows)
		if prev > 0 && l/prev < 1.03 {
			break
		}
		prev = l
		last = shadows
	}
	got := last - 2
	if got < 2 {
		got = 2
	}
	return got
}

// Settings is the subset of PostProcessSettings the histogram estimators
// fill in.
type Settings struct {
	Blacks         float64
	WhitePoint     float64
	SceneLuminance float64
}

// EstimateSettings implements estimateBasicSettings/estimateSettings
// against one preview's luma plane.
func EstimateSettings(luma rawmath.Grid) Settings {
	hist := newBucketedHistogram()
	for _, v := range luma.Vals {
		hist.add(float64(v))
	}

	blackBin := 0
	cum := 0
	for bin := 0; bin <= 7 && bin < numBins; bin++ {
		cum += hist.counts[bin]
		if float64(cum) <= 0.07*float64(hist.total) {
			blackBin = bin
		}
	}
	blacksF := float64(blackBin) / float64(numBins-1)
	if blacksF < 0.02 {
		blacksF = 0.02
	}

	whiteBin := numBins - 1
	cum = 0
	for bin := numBins - 1; bin >= 192; bin-- {
		cum += hist.counts[bin]
		if float64(cum) <= 0.005*float64(hist.total) {
			whiteBin = bin
		}
	}

	logSum := 0.0
	n := 0
	for bin := 0; bin < numBins; bin++ {
		if hist.counts[bin] == 0 {
			continue
		}
		v := binValue(bin) / 255.0
		logSum += math.Log(v+1e-3) * float64(hist.counts[bin])
		n += hist.counts[bin]
	}
	sceneLuminance := 0.0
	if n > 0 {
		sceneLuminance = math.Exp(logSum / float64(n))
	}

	return Settings{
		Blacks:         blacksF,
		WhitePoint:     binValue(whiteBin) / 255.0,
		SceneLuminance: sceneLuminance,
	}
}

// immerkaerWeights is the Laplacian-of-Laplacian kernel from J.
// Immerkaer, "Fast Noise Variance Estimation" (1996).
var immerkaerWeights = [9]float64{
	1, -2, 1,
	-2, 4, -2,
	1, -2, 1,
}

// EstimateGlobalNoiseSigma applies the Immerkaer estimator to a raw
// plane, using the kernel's standard normalization.
func EstimateGlobalNoiseSigma(plane rawmath.Grid) float64 {
	w, h := plane.W, plane.H
	if w < 3 || h < 3 {
		return 0
	}
	offsets := [9][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {0, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}

	sum := 0.0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			conv := 0.0
			for i, o := range offsets {
				conv += float64(plane.At(x+o[0], y+o[1])) * immerkaerWeights[i]
			}
			sum += math.Abs(conv)
		}
	}
	factor := math.Sqrt(0.5*math.Pi) / (6 * float64(w-2) * float64(h-2))
	return sum * factor
}
