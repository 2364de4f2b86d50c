package tonemap

import (
	"testing"

	"github.com/abworrall/rawburst/internal/colorprofile"
	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
)

func flatInput(w, h int, level float32) Input {
	planes := [4]rawmath.Grid{}
	for c := 0; c < 4; c++ {
		g := rawmath.NewGrid(w, h)
		for i := range g.Vals {
			g.Vals[i] = level
		}
		planes[c] = g
	}
	return Input{
		Planes:   planes,
		Camera:   rawburst.RawCameraMetadata{WhiteLevel: 1023},
		Settings: rawburst.DefaultPostProcessSettings(),
		Profile: colorprofile.Profile{
			CameraToSrgb: rawmath.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1},
			CameraWhite:  rawmath.Vec3{1, 1, 1},
		},
	}
}

func TestRender_OutputIsBlockReplicatedNoDemosaic(t *testing.T) {
	pix, w, h, err := Render(flatInput(8, 8, 512))
	if err != nil {
		t.Fatal(err)
	}
	if w != 16 || h != 16 {
		t.Fatalf("got %dx%d, want 16x16", w, h)
	}
	// A 2x2 output block from one plane pixel must be identical, since
	// there is no demosaic interpolation between neighboring blocks.
	i00 := (0*w + 0) * 3
	i01 := (0*w + 1) * 3
	i10 := (1*w + 0) * 3
	i11 := (1*w + 1) * 3
	for k := 0; k < 3; k++ {
		if pix[i00+k] != pix[i01+k] || pix[i00+k] != pix[i10+k] || pix[i00+k] != pix[i11+k] {
			t.Errorf("2x2 block channel %d not uniform: %d %d %d %d", k, pix[i00+k], pix[i01+k], pix[i10+k], pix[i11+k])
		}
	}
}

func TestRender_CropOffsetShrinksOutput(t *testing.T) {
	in := flatInput(8, 8, 512)
	in.OffsetX, in.OffsetY = 1, 1
	_, w, h, err := Render(in)
	if err != nil {
		t.Fatal(err)
	}
	if w != 14 || h != 14 {
		t.Errorf("got %dx%d, want 14x14 (2*(8-1))", w, h)
	}
}

func TestGradeAndMerge_PicksPlanesByArrangementNotByIndex(t *testing.T) {
	w, h := 2, 2
	// Plane c is filled with value 100*(c+1), so the merged R/G/B channels
	// reveal exactly which positional plane fed which role.
	planes := [4]rawmath.Grid{}
	for c := 0; c < 4; c++ {
		g := rawmath.NewGrid(w, h)
		for i := range g.Vals {
			g.Vals[i] = float32(100 * (c + 1))
		}
		planes[c] = g
	}

	for _, tc := range []struct {
		arr                rawburst.SensorArrangement
		wantR, wantG, wantB float32
	}{
		{rawburst.RGGB, 100, 250, 400},
		{rawburst.GRBG, 200, 250, 300},
		{rawburst.GBRG, 300, 250, 200},
		{rawburst.BGGR, 400, 250, 100},
	} {
		in := Input{
			Planes: planes,
			Camera: rawburst.RawCameraMetadata{WhiteLevel: 1, SensorArrangement: tc.arr},
		}
		got := gradeAndMerge(in)
		r, g, b := got.at(0, 0)
		if r != tc.wantR || g != tc.wantG || b != tc.wantB {
			t.Errorf("%v: got r=%v g=%v b=%v, want r=%v g=%v b=%v", tc.arr, r, g, b, tc.wantR, tc.wantG, tc.wantB)
		}
	}
}

func TestRender_BrighterInputProducesBrighterOutput(t *testing.T) {
	dark, _, _, err := Render(flatInput(4, 4, 100))
	if err != nil {
		t.Fatal(err)
	}
	bright, _, _, err := Render(flatInput(4, 4, 900))
	if err != nil {
		t.Fatal(err)
	}
	if bright[0] <= dark[0] {
		t.Errorf("got bright=%d, dark=%d; want bright > dark", bright[0], dark[0])
	}
}
