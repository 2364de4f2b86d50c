// Package colorprofile builds the camera-to-sRGB matrix and per-frame
// neutral white used by the tonemap stage, from a pair of illuminant-tagged
// DNG color/forward matrices and either an explicit temperature+tint or an
// as-shot camera-neutral vector.
package colorprofile

import (
	"math"

	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
)

// Translates XYZ(D50) to linear sRGB(D65). Bundles in the chromatic
// adaptation from D50 to D65 so the white balance doesn't shift.
var xyzD50ToLinearSRGBD65 = rawmath.Mat3{
	3.1338561, -1.6168667, -0.4906146,
	-0.9787684, 1.9161415, 0.0334540,
	0.0719453, -0.2289914, 1.4052427,
}

// Profile is the pair of matrices the tonemap stage needs for one frame.
type Profile struct {
	CameraToSrgb rawmath.Mat3
	CameraWhite  rawmath.Vec3
}

func mat3From9(a [9]float64) rawmath.Mat3 {
	return rawmath.Mat3{a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8]}
}

// blendFraction returns how far temperatureK sits between the two
// calibration illuminants, clamped to [0,1]. Interpolation is done in
// inverse-temperature (mired) space, which is how DNG readers do it.
func blendFraction(cam rawburst.RawCameraMetadata, temperatureK float64) float64 {
	t1 := cam.ColorIlluminant1.KelvinOf()
	t2 := cam.ColorIlluminant2.KelvinOf()
	if t1 == t2 {
		return 0
	}
	m1, m2, mT := 1e6/t1, 1e6/t2, 1e6/temperatureK
	frac := (mT - m1) / (m2 - m1)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return frac
}

// ForTemperature builds a Profile from an explicit temperature and an
// as-shot-style camera-neutral vector, blending ColorMatrix1/ForwardMatrix1
// (illuminant1) with ColorMatrix2/ForwardMatrix2 (illuminant2) by the
// fraction between the two illuminant temperatures. Tint is not an input:
// the blend depends on temperature alone, and cameraNeutral is used as the
// white unchanged.
func ForTemperature(cam rawburst.RawCameraMetadata, temperatureK float64, cameraNeutral rawmath.Vec3) (Profile, error) {
	frac := blendFraction(cam, temperatureK)

	forward1 := mat3From9(cam.ForwardMatrix1)
	forward2 := mat3From9(cam.ForwardMatrix2)
	forward := forward1.Lerp(forward2, frac)

	forwardInv, err := forward.Invert()
	if err != nil {
		return Profile{}, rawburst.InvalidStatef("colorprofile.ForTemperature", "forward matrix not invertible: %v", err)
	}
	_ = forwardInv // only checked for invertibility; not returned

	cameraToXYZD50 := forward
	cameraToSrgb := xyzD50ToLinearSRGBD65.Mult(cameraToXYZD50)

	return Profile{
		CameraToSrgb: cameraToSrgb,
		CameraWhite:  cameraNeutral,
	}, nil
}

// ForAsShot builds a Profile directly from a per-frame as-shot
// camera-neutral vector: normalize by max, recover an equivalent
// temperature, then blend as ForTemperature does. Fails when asShot is
// all-zero.
func ForAsShot(cam rawburst.RawCameraMetadata, asShot rawmath.Vec3) (Profile, error) {
	if asShot.Max() <= 0 {
		return Profile{}, rawburst.InvalidInputf("colorprofile.ForAsShot", "as-shot vector is all-zero")
	}
	normalized := asShot.Normalized()

	temperatureK := temperatureFromNeutral(cam, normalized)
	return ForTemperature(cam, temperatureK, normalized)
}

// temperatureFromNeutral inverts the neutral-vector-from-temperature
// mapping by a grid search over the illuminant range: 33 candidate
// temperatures evenly spaced in inverse temperature, for each of which
// the blended ColorMatrix predicts a neutral response to an equal-energy
// (1,1,1) XYZ white; it returns the candidate whose max-normalized
// predicted neutral is closest (sum of absolute differences) to the
// observed one.
func temperatureFromNeutral(cam rawburst.RawCameraMetadata, neutral rawmath.Vec3) float64 {
	t1 := cam.ColorIlluminant1.KelvinOf()
	t2 := cam.ColorIlluminant2.KelvinOf()
	lo, hi := t1, t2
	if lo > hi {
		lo, hi = hi, lo
	}

	best, bestErr := lo, math.MaxFloat64
	const steps = 32
	for i := 0; i <= steps; i++ {
		frac := float64(i) / steps
		t := 1.0 / ((1-frac)/t1 + frac/t2)
		colorMatrix := mat3From9(cam.ColorMatrix1).Lerp(mat3From9(cam.ColorMatrix2), blendFraction(cam, t))
		predicted := colorMatrix.Apply(rawmath.Vec3{1, 1, 1}).Normalized()
		errAt := math.Abs(float64(predicted[0]-neutral[0])) + math.Abs(float64(predicted[1]-neutral[1])) + math.Abs(float64(predicted[2]-neutral[2]))
		if errAt < bestErr {
			bestErr, best = errAt, t
		}
	}
	return best
}
