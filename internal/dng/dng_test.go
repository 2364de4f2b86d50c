package dng

import (
	"testing"

	"github.com/abworrall/rawburst/internal/rawburst"
)

func TestReorderToRGGB_RGGBIsIdentity(t *testing.T) {
	planes := [4][]uint16{{0}, {1}, {2}, {3}}
	out := ReorderToRGGB(rawburst.RGGB, planes)
	for i := 0; i < 4; i++ {
		if out[i][0] != uint16(i) {
			t.Errorf("plane %d: got %d, want %d", i, out[i][0], i)
		}
	}
}

func TestReorderToRGGB_EveryArrangementIsAPermutation(t *testing.T) {
	planes := [4][]uint16{{10}, {11}, {12}, {13}}
	for _, arr := range []rawburst.SensorArrangement{rawburst.RGGB, rawburst.GRBG, rawburst.GBRG, rawburst.BGGR} {
		out := ReorderToRGGB(arr, planes)
		seen := map[uint16]bool{}
		for _, p := range out {
			seen[p[0]] = true
		}
		if len(seen) != 4 {
			t.Errorf("arrangement %v: reorder dropped a plane, got %v", arr, out)
		}
	}
}

func TestIlluminant_CoversAllSevenStandardValues(t *testing.T) {
	seen := map[int]bool{}
	for _, i := range []rawburst.Illuminant{
		rawburst.StandardA, rawburst.StandardB, rawburst.StandardC,
		rawburst.D50, rawburst.D55, rawburst.D65, rawburst.D75,
	} {
		code := Illuminant(i)
		if code == 0 {
			t.Errorf("illuminant %v mapped to the default(unknown) code", i)
		}
		seen[code] = true
	}
	if len(seen) != 7 {
		t.Errorf("expected 7 distinct DNG illuminant codes, got %d", len(seen))
	}
}

func TestBuildGainMaps_PreservesPerPositionOffsets(t *testing.T) {
	var lsm [4]rawburst.LensShadingGrid
	for i := range lsm {
		lsm[i] = rawburst.LensShadingGrid{Width: 2, Height: 2, Gain: []float32{1, 1, 1, 1}}
	}
	maps := BuildGainMaps(lsm)
	for i, m := range maps {
		wantTop, wantLeft := GainMapOffsets[i][1], GainMapOffsets[i][0]
		if m.Top != wantTop || m.Left != wantLeft {
			t.Errorf("gain map %d: got (top=%d,left=%d), want (top=%d,left=%d)", i, m.Top, m.Left, wantTop, wantLeft)
		}
	}
}

func TestBuildWriteOptions_UsesExpandedRangeWhiteLevel(t *testing.T) {
	opts := BuildWriteOptions(rawburst.RawCameraMetadata{}, rawburst.RawImageMetadata{}, 100, 200)
	if opts.WhiteLevel != 16384 {
		t.Errorf("got white level %d, want 16384 (expanded range)", opts.WhiteLevel)
	}
	if opts.DefaultCropWidth != 100 || opts.DefaultCropHeight != 200 {
		t.Errorf("got crop %dx%d, want 100x200", opts.DefaultCropWidth, opts.DefaultCropHeight)
	}
}
