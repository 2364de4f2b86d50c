package colorprofile

import (
	"math"
	"testing"

	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
)

func testCamera() rawburst.RawCameraMetadata {
	// A camera whose two calibration matrices are identical: this makes
	// the blended illuminant a no-op regardless of temperature, which
	// keeps these tests independent of the temperature grid search's precision.
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	return rawburst.RawCameraMetadata{
		ColorMatrix1: identity, ColorMatrix2: identity,
		ForwardMatrix1: identity, ForwardMatrix2: identity,
		ColorIlluminant1: rawburst.StandardA, ColorIlluminant2: rawburst.D65,
	}
}

func TestForAsShot_RejectsAllZero(t *testing.T) {
	_, err := ForAsShot(testCamera(), rawmath.Vec3{0, 0, 0})
	if err == nil {
		t.Fatal("expected error for all-zero as-shot vector")
	}
}

func TestForAsShot_NormalizesNeutral(t *testing.T) {
	profile, err := ForAsShot(testCamera(), rawmath.Vec3{2, 4, 2})
	if err != nil {
		t.Fatal(err)
	}
	if profile.CameraWhite.Max() != 1.0 {
		t.Errorf("expected normalized neutral to have max component 1, got %v", profile.CameraWhite.Max())
	}
}

func TestForTemperature_BlendsIdentically(t *testing.T) {
	cam := testCamera()
	p1, err := ForTemperature(cam, cam.ColorIlluminant1.KelvinOf(), rawmath.Vec3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ForTemperature(cam, cam.ColorIlluminant2.KelvinOf(), rawmath.Vec3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	// Since both calibration matrices are identity, the blended matrix
	// should be identity at both endpoint temperatures.
	for i := range p1.CameraToSrgb {
		if math.Abs(p1.CameraToSrgb[i]-p2.CameraToSrgb[i]) > 1e-9 {
			t.Errorf("blend endpoints differ at index %d: %v vs %v", i, p1.CameraToSrgb[i], p2.CameraToSrgb[i])
		}
	}
}
