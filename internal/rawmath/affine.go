package rawmath

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Aff3 is a 2D affine transform, used to rotate/flip preview output.
type Aff3 f64.Aff3

// Cloned from image@0.7.0/draw/scale:matMul.
func (p Aff3) Mult(q Aff3) Aff3 {
	return Aff3{
		p[0]*q[0] + p[1]*q[3],
		p[0]*q[1] + p[1]*q[4],
		p[0]*q[2] + p[1]*q[5] + p[2],
		p[3]*q[0] + p[4]*q[3],
		p[3]*q[1] + p[4]*q[4],
		p[3]*q[2] + p[4]*q[5] + p[5],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0, 0, 1, 0}
}

func (m1 Aff3) Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx, 0, 1, ty})
}

func (m1 Aff3) Scale(sx, sy float64) Aff3 {
	return m1.Mult(Aff3{sx, 0, 0, 0, sy, 0})
}

func (m1 Aff3) Rotate90() Aff3 {
	return m1.Mult(Aff3{0, -1, 0, 1, 0, 0})
}

func (m1 Aff3) Rotate180() Aff3 {
	return m1.Mult(Aff3{-1, 0, 0, 0, -1, 0})
}

func (m1 Aff3) FlipX() Aff3 {
	return m1.Mult(Aff3{-1, 0, 0, 0, 1, 0})
}

// RotateAbout rotates by thetaDeg degrees about (x,y). Composition is
// back-to-front, rightmost operation performed first.
func RotateAbout(thetaDeg, x, y float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	rot := Aff3{cosTheta, -sinTheta, 0, sinTheta, cosTheta, 0}
	return Identity().Translate(x, y).Mult(rot).Translate(-x, -y)
}
