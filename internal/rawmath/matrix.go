// Package rawmath holds the small linear-algebra and affine-transform
// helpers shared by the color profile, wavelet, flow and tonemap stages.
package rawmath

import (
	"fmt"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Vec3 is a 3-component vector, used for camera-native RGB, XYZ and
// as-shot neutral values.
type Vec3 f64.Vec3

// Mat3 is a row-major 3x3 matrix, used for camera color matrices and
// PCS conversions.
type Mat3 f64.Mat3

func (m Mat3) Mult(b Mat3) Mat3 {
	return Mat3{
		m[0]*b[0] + m[1]*b[3] + m[2]*b[6],
		m[0]*b[1] + m[1]*b[4] + m[2]*b[7],
		m[0]*b[2] + m[1]*b[5] + m[2]*b[8],

		m[3]*b[0] + m[4]*b[3] + m[5]*b[6],
		m[3]*b[1] + m[4]*b[4] + m[5]*b[7],
		m[3]*b[2] + m[4]*b[5] + m[5]*b[8],

		m[6]*b[0] + m[7]*b[3] + m[8]*b[6],
		m[6]*b[1] + m[7]*b[4] + m[8]*b[7],
		m[6]*b[2] + m[7]*b[5] + m[8]*b[8],
	}
}

// Apply maps a vector through the matrix.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Lerp linearly interpolates between two matrices, used to blend
// ColorMatrix1/2 and ForwardMatrix1/2 by illuminant fraction.
func (m Mat3) Lerp(o Mat3, frac float64) Mat3 {
	var out Mat3
	for i := range m {
		out[i] = m[i]*(1-frac) + o[i]*frac
	}
	return out
}

// Invert inverts the matrix using gonum: ColorMatrix1/2 and
// ForwardMatrix1/2 are general 3x3s, not diagonal, so a closed-form
// diagonal inverse won't do.
func (m Mat3) Invert() (Mat3, error) {
	d := mat.NewDense(3, 3, []float64{
		m[0], m[1], m[2],
		m[3], m[4], m[5],
		m[6], m[7], m[8],
	})

	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return Mat3{}, fmt.Errorf("invert 3x3 matrix: %v", err)
	}

	return Mat3{
		inv.At(0, 0), inv.At(0, 1), inv.At(0, 2),
		inv.At(1, 0), inv.At(1, 1), inv.At(1, 2),
		inv.At(2, 0), inv.At(2, 1), inv.At(2, 2),
	}, nil
}

func (m Mat3) String() string {
	return fmt.Sprintf("[%8.5f %8.5f %8.5f]\n[%8.5f %8.5f %8.5f]\n[%8.5f %8.5f %8.5f]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8])
}

// InvertDiag places the vector on the diagonal of a matrix, then inverts
// it: used to build the "D" white-balance matrix from the DNG spec.
func (v Vec3) InvertDiag() Mat3 {
	return Mat3{
		1.0 / v[0], 0, 0,
		0, 1.0 / v[1], 0,
		0, 0, 1.0 / v[2],
	}
}

// Max returns the largest of the three components.
func (v Vec3) Max() float64 {
	m := v[0]
	if v[1] > m {
		m = v[1]
	}
	if v[2] > m {
		m = v[2]
	}
	return m
}

// Normalized returns the vector scaled so that its largest component is 1.
func (v Vec3) Normalized() Vec3 {
	max := v.Max()
	if max == 0 {
		return v
	}
	return Vec3{v[0] / max, v[1] / max, v[2] / max}
}

func (v *Vec3) FloorAt(min float64) {
	if v[0] < min {
		v[0] = min
	}
	if v[1] < min {
		v[1] = min
	}
	if v[2] < min {
		v[2] = min
	}
}

func (v *Vec3) CeilingAt(max float64) {
	if v[0] > max {
		v[0] = max
	}
	if v[1] > max {
		v[1] = max
	}
	if v[2] > max {
		v[2] = max
	}
}

func (v Vec3) String() string {
	return fmt.Sprintf("[%10.6f %10.6f %10.6f]", v[0], v[1], v[2])
}
