package wavelet

// CDF 9/7 lifting coefficients (Cohen-Daubechies-Feauveau), the standard
// real-valued biorthogonal wavelet used by JPEG 2000's irreversible path.
// Grounded on the predict/update/predict/update/scale lifting-step shape
// used both by the kanzi CDF_9_7 implementation and by the real-valued
// (non fixed-point) dicom-codec dwt97 translation of OpenJPEG's dwt.c;
// this version works on the split (even/odd) representation rather than
// OpenJPEG's interleaved in-place buffer, which is an equivalent
// formulation of the same four lifting steps.
const (
	alpha97 = -1.586134342
	beta97  = -0.052980118
	gamma97 = 0.882911075
	delta97 = 0.443506852
	k97     = 1.230174105
	invK97  = 1.0 / k97
)

// forward1D splits an even-length signal into low (approximation) and
// high (detail) halves via the CDF 9/7 lifting steps, with edge-clamp
// (symmetric) extension at the boundaries.
func forward1D(x []float64) (low, high []float64) {
	n := len(x)
	half := n / 2
	s := make([]float64, half)
	d := make([]float64, half)
	for i := 0; i < half; i++ {
		s[i] = x[2*i]
		d[i] = x[2*i+1]
	}

	predict(s, d, alpha97)
	update(s, d, beta97)
	predict(s, d, gamma97)
	update(s, d, delta97)

	for i := 0; i < half; i++ {
		s[i] *= invK97
		d[i] *= k97
	}
	return s, d
}

// inverse1D undoes forward1D exactly (up to floating-point error).
func inverse1D(low, high []float64) []float64 {
	half := len(low)
	s := make([]float64, half)
	d := make([]float64, half)
	for i := 0; i < half; i++ {
		s[i] = low[i] * k97
		d[i] = high[i] * invK97
	}

	unupdate(s, d, delta97)
	unpredict(s, d, gamma97)
	unupdate(s, d, beta97)
	unpredict(s, d, alpha97)

	n := half * 2
	x := make([]float64, n)
	for i := 0; i < half; i++ {
		x[2*i] = s[i]
		x[2*i+1] = d[i]
	}
	return x
}

func sAt(s []float64, i int) float64 {
	if i < 0 {
		i = 0
	}
	if i >= len(s) {
		i = len(s) - 1
	}
	return s[i]
}

func dAt(d []float64, i int) float64 {
	if i < 0 {
		i = 0
	}
	if i >= len(d) {
		i = len(d) - 1
	}
	return d[i]
}

// predict updates d[i] += c*(s[i]+s[i+1]), used for both the alpha and
// gamma lifting steps.
func predict(s, d []float64, c float64) {
	for i := range d {
		d[i] += c * (sAt(s, i) + sAt(s, i+1))
	}
}

func unpredict(s, d []float64, c float64) {
	for i := range d {
		d[i] -= c * (sAt(s, i) + sAt(s, i+1))
	}
}

// update updates s[i] += c*(d[i-1]+d[i]), used for both the beta and
// delta lifting steps.
func update(s, d []float64, c float64) {
	for i := range s {
		s[i] += c * (dAt(d, i-1) + dAt(d, i))
	}
}

func unupdate(s, d []float64, c float64) {
	for i := range s {
		s[i] -= c * (dAt(d, i-1) + dAt(d, i))
	}
}
