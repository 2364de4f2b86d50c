package preview

import (
	"testing"

	"github.com/abworrall/rawburst/internal/colorprofile"
	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
	"github.com/abworrall/rawburst/internal/tonemap"
)

func testInput(w, h int) tonemap.Input {
	planes := [4]rawmath.Grid{}
	for c := 0; c < 4; c++ {
		g := rawmath.NewGrid(w, h)
		for i := range g.Vals {
			g.Vals[i] = 500
		}
		planes[c] = g
	}
	return tonemap.Input{
		Planes:   planes,
		Camera:   rawburst.RawCameraMetadata{WhiteLevel: 1023},
		Settings: rawburst.DefaultPostProcessSettings(),
		Profile:  colorprofile.Profile{CameraToSrgb: rawmath.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}, CameraWhite: rawmath.Vec3{1, 1, 1}},
	}
}

func TestRender_RejectsInvalidScale(t *testing.T) {
	_, _, _, err := Render(testInput(32, 32), Options{Scale: Scale(3)})
	if err == nil {
		t.Fatal("expected error for invalid scale")
	}
}

func TestRender_ScalesDownByFactor(t *testing.T) {
	in := testInput(32, 32)
	_, w, h, err := Render(in, Options{Scale: Half})
	if err != nil {
		t.Fatal(err)
	}
	// Half resolution is the 32x32 plane itself; Half halves that again.
	if w != 16 || h != 16 {
		t.Errorf("got %dx%d, want 16x16", w, h)
	}
}

func TestRender_OrientationRotatesDimensions(t *testing.T) {
	in := testInput(32, 16)
	_, w, h, err := Render(in, Options{Scale: Quarter, Orientation: rawburst.Portrait})
	if err != nil {
		t.Fatal(err)
	}
	// Unrotated at Quarter scale: (32/4) x (16/4) = 8x4. Portrait
	// rotates 90 degrees, swapping the axes.
	if w != 4 || h != 8 {
		t.Errorf("got %dx%d, want 4x8", w, h)
	}
}

func TestMeanLuminance_EmptyIsZero(t *testing.T) {
	if got := MeanLuminance(nil); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}
