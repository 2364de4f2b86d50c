// Package rawburst owns the data model shared across the burst-denoise
// pipeline (buffers, metadata, settings) and the external collaborator
// interfaces the orchestrator (internal/pipeline) drives.
package rawburst

import "sync"

// PixelFormat enumerates the packed raw formats the deinterleaver
// recognizes.
type PixelFormat int

const (
	PixelFormatRaw10 PixelFormat = iota
	PixelFormatRaw16
	PixelFormatYUV420Bayer
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRaw10:
		return "raw10"
	case PixelFormatRaw16:
		return "raw16"
	case PixelFormatYUV420Bayer:
		return "yuv420_bayer"
	default:
		return "unknown"
	}
}

// SensorArrangement is the CFA layout of the sensor.
type SensorArrangement int

const (
	RGGB SensorArrangement = iota
	GRBG
	GBRG
	BGGR
)

func (s SensorArrangement) String() string {
	switch s {
	case RGGB:
		return "RGGB"
	case GRBG:
		return "GRBG"
	case GBRG:
		return "GBRG"
	case BGGR:
		return "BGGR"
	default:
		return "unknown"
	}
}

// ScreenOrientation is the device orientation at capture time.
type ScreenOrientation int

const (
	Landscape ScreenOrientation = iota
	Portrait
	ReverseLandscape
	ReversePortrait
)

// Illuminant is one of the DNG-recognized calibration illuminants.
type Illuminant int

const (
	StandardA Illuminant = iota
	StandardB
	StandardC
	D50
	D55
	D65
	D75
)

// KelvinOf returns the correlated color temperature associated with each
// standard illuminant, used to interpolate between ColorMatrix1/2.
func (i Illuminant) KelvinOf() float64 {
	switch i {
	case StandardA:
		return 2856
	case StandardB:
		return 4874
	case StandardC:
		return 6774
	case D50:
		return 5003
	case D55:
		return 5503
	case D65:
		return 6504
	case D75:
		return 7504
	default:
		return 5503
	}
}

// RawImageBuffer wraps a packed byte blob with the metadata needed to
// interpret it, and a scoped-lock discipline for the underlying bytes.
type RawImageBuffer struct {
	Width, Height int
	RowStride     int
	PixelFormat   PixelFormat

	mu   sync.Mutex
	data []byte

	Metadata RawImageMetadata
}

func NewRawImageBuffer(width, height, rowStride int, format PixelFormat, data []byte, md RawImageMetadata) *RawImageBuffer {
	return &RawImageBuffer{Width: width, Height: height, RowStride: rowStride, PixelFormat: format, data: data, Metadata: md}
}

// ScopedBytes is the RAII-style handle around the buffer's native bytes;
// its Release must be called on every exit path to unlock the buffer.
type ScopedBytes struct {
	buf     *RawImageBuffer
	bytes   []byte
	release sync.Once
}

// Lock acquires the buffer's mutex and returns a scoped accessor. Callers
// must defer Release().
func (b *RawImageBuffer) Lock() *ScopedBytes {
	b.mu.Lock()
	return &ScopedBytes{buf: b, bytes: b.data}
}

func (s *ScopedBytes) Bytes() []byte { return s.bytes }

func (s *ScopedBytes) Release() {
	s.release.Do(func() {
		s.buf.mu.Unlock()
	})
}

// Rational is a fixed-point numerator/denominator pair, used for
// exposure compensation and EXIF rational fields.
type Rational struct {
	Num, Den int64
}

func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// RawImageMetadata is the per-frame capture metadata.
type RawImageMetadata struct {
	FrameID               string
	ISO                   int
	ExposureTimeNanos     int64
	ExposureCompensation  Rational
	AsShot                [3]float64 // camera-neutral vector, all >=0, max>0
	ColorCorrection       [4]float64 // per-CFA-position channel trim
	LensShadingMap        [4]LensShadingGrid
	ScreenOrientation     ScreenOrientation
}

// LensShadingGrid is one CFA position's vignette-correction grid.
type LensShadingGrid struct {
	Width, Height int
	Gain          []float32
}

func (g LensShadingGrid) At(x, y int) float32 {
	if len(g.Gain) == 0 {
		return 1.0
	}
	return g.Gain[y*g.Width+x]
}

// RawCameraMetadata is per-camera, capture-independent metadata.
type RawCameraMetadata struct {
	SensorArrangement SensorArrangement
	BlackLevel        [4]int
	WhiteLevel        int

	ColorMatrix1, ColorMatrix2     [9]float64
	ForwardMatrix1, ForwardMatrix2 [9]float64
	ColorIlluminant1, ColorIlluminant2 Illuminant

	Apertures    []float64
	FocalLengths []float64
}

// PostProcessSettings configures the tonemap stage and, where a field is
// left at its zero value, the scene analyzer's defaults.
type PostProcessSettings struct {
	Temperature, Tint float64 // both 0 => use per-frame AsShot

	Exposure    float64
	Shadows     float64
	Blacks      float64
	WhitePoint  float64 // in [0,1]
	Gamma       float64
	Contrast    float64
	Saturation  float64
	BlueSaturation  float64
	GreenSaturation float64

	TonemapVariance float64
	Sharpen0        float64
	Sharpen1        float64
	ChromaEps       float64

	SceneLuminance float64
	NoiseSigma     float64

	JpegQuality int // 1..100

	SpatialDenoiseAggressiveness float64

	Flipped bool
}

// DefaultPostProcessSettings returns sane defaults, matching what the
// scene analyzer would otherwise have to fill in from scratch.
func DefaultPostProcessSettings() PostProcessSettings {
	return PostProcessSettings{
		Exposure:    0,
		Shadows:     4,
		Blacks:      0.02,
		WhitePoint:  1.0,
		Gamma:       2.2,
		Contrast:    1.0,
		Saturation:  1.0,
		BlueSaturation:  1.0,
		GreenSaturation: 1.0,
		TonemapVariance: 0.25,
		Sharpen0:        1.0,
		Sharpen1:        1.0,
		ChromaEps:       0.02,
		JpegQuality:     95,
		SpatialDenoiseAggressiveness: 1.0,
	}
}
