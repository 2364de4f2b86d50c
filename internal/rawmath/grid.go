package rawmath

// Grid is a simple row-major float32 grid, used for wavelet sub-bands,
// lens-shading maps, flow fields and preview luma planes. Modeled on
// emath.FloatGrid, generalized from float64 to float32 (the values here
// are sensor-scale, not the wide-dynamic-range HDR luminances the
// teacher's FloatGrid held) and with a bilinear sampler added, since
// the fusion kernel and lens-shading correction both need one.
type Grid struct {
	W, H int
	Vals []float32
}

func NewGrid(w, h int) Grid {
	return Grid{W: w, H: h, Vals: make([]float32, w*h)}
}

func (g *Grid) At(x, y int) float32 { return g.Vals[y*g.W+x] }
func (g *Grid) Set(x, y int, v float32) {
	g.Vals[y*g.W+x] = v
}

// Clamp clamps (x,y) to the grid bounds, used for edge-extension reads.
func (g *Grid) Clamp(x, y int) (int, int) {
	if x < 0 {
		x = 0
	} else if x >= g.W {
		x = g.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.H {
		y = g.H - 1
	}
	return x, y
}

func (g *Grid) AtClamped(x, y int) float32 {
	x, y = g.Clamp(x, y)
	return g.At(x, y)
}

// Bilinear samples the grid at fractional coordinates, clamping at the
// edges. Used for flow-warped coefficient lookups and lens-shading maps.
func (g *Grid) Bilinear(fx, fy float32) float32 {
	x0 := int(fx)
	y0 := int(fy)
	if fx < 0 {
		x0--
	}
	if fy < 0 {
		y0--
	}
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	v00 := g.AtClamped(x0, y0)
	v10 := g.AtClamped(x0+1, y0)
	v01 := g.AtClamped(x0, y0+1)
	v11 := g.AtClamped(x0+1, y0+1)

	top := v00 + (v10-v00)*tx
	bot := v01 + (v11-v01)*tx
	return top + (bot-top)*ty
}

// BilinearScaled samples a grid of different dimensions than the target,
// used to sample the lens-shading map (sized to sensor-grid resolution)
// at a plane pixel location.
func (g *Grid) BilinearScaled(x, y, targetW, targetH int) float32 {
	fx := float32(x) * float32(g.W-1) / float32(maxInt(targetW-1, 1))
	fy := float32(y) * float32(g.H-1) / float32(maxInt(targetH-1, 1))
	return g.Bilinear(fx, fy)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
