// Package flow implements dense inverse-search optical flow between a
// reference and a candidate preview plane.
package flow

import (
	"math"
	"sync"

	"github.com/abworrall/rawburst/internal/rawmath"
)

// Options are part of the contract: downstream fusion heuristics depend
// on these exact values.
type Options struct {
	PatchSize        int
	Stride           int
	GDIterations     int
	RefineIterations int
}

// DefaultOptions is the settings vector fusion's weight-regime table
// assumes.
func DefaultOptions() Options {
	return Options{PatchSize: 16, Stride: 8, GDIterations: 16, RefineIterations: 5}
}

// Field is a dense (u,v) flow field at the resolution of the input
// preview planes.
type Field struct {
	W, H int
	U, V rawmath.Grid
}

// At returns the flow vector at pixel (x,y).
func (f Field) At(x, y int) (u, v float32) {
	return f.U.At(x, y), f.V.At(x, y)
}

// Estimate computes the dense flow mapping reference-plane pixels to
// their matching location in candidate. Both planes must share
// dimensions (w,h).
func Estimate(reference, candidate []uint8, w, h int, opts Options) Field {
	refG := planeToGrid(reference, w, h)
	candG := planeToGrid(candidate, w, h)

	gridW := (w-opts.PatchSize)/opts.Stride + 1
	gridH := (h-opts.PatchSize)/opts.Stride + 1
	if gridW < 1 {
		gridW = 1
	}
	if gridH < 1 {
		gridH = 1
	}

	patchU := make([]float32, gridW*gridH)
	patchV := make([]float32, gridW*gridH)

	// Spatial propagation: process patches in raster order so each one
	// can seed its gradient descent from its already-solved left/top
	// neighbor.
	for gy := 0; gy < gridH; gy++ {
		for gx := 0; gx < gridW; gx++ {
			px := gx * opts.Stride
			py := gy * opts.Stride

			u0, v0 := float32(0), float32(0)
			if gx > 0 {
				u0, v0 = patchU[gy*gridW+gx-1], patchV[gy*gridW+gx-1]
			} else if gy > 0 {
				u0, v0 = patchU[(gy-1)*gridW+gx], patchV[(gy-1)*gridW+gx]
			}

			u, v := inverseSearchPatch(refG, candG, px, py, opts.PatchSize, u0, v0, opts.GDIterations)
			patchU[gy*gridW+gx] = u
			patchV[gy*gridW+gx] = v
		}
	}

	field := Field{W: w, H: h, U: rawmath.NewGrid(w, h), V: rawmath.NewGrid(w, h)}
	half := float32(opts.PatchSize) / 2
	patchGridU := rawmath.Grid{W: gridW, H: gridH, Vals: patchU}
	patchGridV := rawmath.Grid{W: gridW, H: gridH, Vals: patchV}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := (float32(x) - half) / float32(opts.Stride)
			fy := (float32(y) - half) / float32(opts.Stride)
			field.U.Set(x, y, patchGridU.Bilinear(fx, fy))
			field.V.Set(x, y, patchGridV.Bilinear(fx, fy))
		}
	}

	variationalRefine(&field, opts.RefineIterations)
	return field
}

func planeToGrid(p []uint8, w, h int) rawmath.Grid {
	g := rawmath.NewGrid(w, h)
	for i, v := range p {
		g.Vals[i] = float32(v)
	}
	return g
}

// inverseSearchPatch runs gradient-descent inverse-compositional search
// for the (u,v) that best aligns candidate's patch at (px,py) with
// reference's patch at (px,py), starting from (u0,v0).
func inverseSearchPatch(ref, cand rawmath.Grid, px, py, size int, u0, v0 float32, iterations int) (float32, float32) {
	u, v := u0, v0
	for iter := 0; iter < iterations; iter++ {
		var sxx, sxy, syy, sxe, sye float64
		for dy := 0; dy < size; dy++ {
			for dx := 0; dx < size; dx++ {
				rx, ry := px+dx, py+dy
				cx, cy := float32(rx)+u, float32(ry)+v

				cVal := cand.Bilinear(cx, cy)
				cGx := cand.Bilinear(cx+1, cy) - cand.Bilinear(cx-1, cy)
				cGy := cand.Bilinear(cx, cy+1) - cand.Bilinear(cx, cy-1)

				e := float64(cVal - ref.AtClamped(rx, ry))
				ix, iy := float64(cGx)/2, float64(cGy)/2

				sxx += ix * ix
				sxy += ix * iy
				syy += iy * iy
				sxe += ix * e
				sye += iy * e
			}
		}

		det := sxx*syy - sxy*sxy
		if math.Abs(det) < 1e-6 {
			break
		}
		du := (syy*sxe - sxy*sye) / -det
		dv := (sxx*sye - sxy*sxe) / -det
		u += float32(du)
		v += float32(dv)
	}
	return u, v
}

// variationalRefine smooths the dense field toward local consensus for
// a fixed number of iterations, a lightweight stand-in for a full
// variational-energy solve: each pass nudges every pixel toward its
// 4-neighbor average without discarding the data term entirely.
func variationalRefine(f *Field, iterations int) {
	if iterations <= 0 {
		return
	}
	const lambda = 0.5
	w, h := f.W, f.H
	for iter := 0; iter < iterations; iter++ {
		nu := rawmath.NewGrid(w, h)
		nv := rawmath.NewGrid(w, h)
		var wg sync.WaitGroup
		rows := make(chan int, h)
		for y := 0; y < h; y++ {
			rows <- y
		}
		close(rows)
		workers := 8
		for wIdx := 0; wIdx < workers; wIdx++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for y := range rows {
					for x := 0; x < w; x++ {
						avgU := (f.U.AtClamped(x-1, y) + f.U.AtClamped(x+1, y) + f.U.AtClamped(x, y-1) + f.U.AtClamped(x, y+1)) / 4
						avgV := (f.V.AtClamped(x-1, y) + f.V.AtClamped(x+1, y) + f.V.AtClamped(x, y-1) + f.V.AtClamped(x, y+1)) / 4
						nu.Set(x, y, f.U.At(x, y)*(1-lambda)+avgU*lambda)
						nv.Set(x, y, f.V.At(x, y)*(1-lambda)+avgV*lambda)
					}
				}
			}()
		}
		wg.Wait()
		f.U, f.V = nu, nv
	}
}

// StdDevMagnitude downscales the field by 4 (box average) and returns
// the standard deviation of the resulting vector magnitudes, used to
// characterize how much motion a candidate frame carries.
func StdDevMagnitude(f Field) float64 {
	const factor = 4
	dw, dh := f.W/factor, f.H/factor
	if dw < 1 || dh < 1 {
		dw, dh = 1, 1
	}
	mags := make([]float64, 0, dw*dh)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var su, sv float64
			n := 0
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					sx, sy := x*factor+dx, y*factor+dy
					if sx >= f.W || sy >= f.H {
						continue
					}
					su += float64(f.U.At(sx, sy))
					sv += float64(f.V.At(sx, sy))
					n++
				}
			}
			if n == 0 {
				continue
			}
			su /= float64(n)
			sv /= float64(n)
			mags = append(mags, math.Hypot(su, sv))
		}
	}
	if len(mags) == 0 {
		return 0
	}
	mean := 0.0
	for _, m := range mags {
		mean += m
	}
	mean /= float64(len(mags))
	varSum := 0.0
	for _, m := range mags {
		d := m - mean
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(mags)))
}
