package rawburst

// Container is the external collaborator that owns frame storage and
// per-capture configuration.
type Container interface {
	GetFrames() []string
	GetReferenceImage() string
	GetFrame(id string) (*RawImageBuffer, error)   // cheap, metadata-only
	LoadFrame(id string) (*RawImageBuffer, error)   // materialized, lockable
	ReleaseFrame(id string)
	GetCameraMetadata() RawCameraMetadata
	GetPostProcessSettings() PostProcessSettings
	GetWriteDNG() bool
}

// DNGImage is the interleaved uint16 RGGB Bayer image handed to the DNG
// writer, already permuted to canonical RGGB order and cropped.
type DNGImage struct {
	Width, Height int
	Pix           []uint16 // interleaved single-channel RGGB mosaic, row-major
}

// DNGWriter is the external collaborator that serializes an uncompressed
// DNG. On-disk DNG serialization is explicitly out of core scope here;
// this package only builds the fields the writer needs and calls this
// interface.
type DNGWriter interface {
	WriteDNG(path string, img DNGImage, cam RawCameraMetadata, frame RawImageMetadata, opts DNGWriteOptions) error
}

// DNGWriteOptions carries the fields the DNG must contain beyond the raw
// pixel data and per-camera/per-frame metadata already passed to WriteDNG.
type DNGWriteOptions struct {
	GainMaps         [4]LensShadingGrid // one per CFA position
	GainMapOffsets   [4][2]int          // top-left offsets
	CameraNeutral    [3]float64         // from AsShot
	WhiteLevel       int                // always EXPANDED_RANGE
	BaseOrientation  DNGOrientation
	NoiseReduction   bool
	DefaultCropWidth, DefaultCropHeight int
	Model            string
	ProfileEmbedPolicy string
}

// DNGOrientation mirrors the DNG spec's small set of base orientations.
type DNGOrientation int

const (
	DNGNormal DNGOrientation = iota
	DNGRotate90CW
	DNGRotate180
	DNGRotate90CCW
)

// EXIFTags is the set of fields the orchestrator computes for embedding.
type EXIFTags struct {
	ISO               int
	ExposureSeconds   Rational
	Orientation       int // one of the 8 EXIF orientation codes
	Aperture          float64
	FocalLengthMM     float64
	LensModel         string
	ColorSpaceSRGB    bool
	SceneType         int
	ResolutionDPI     int
	WhiteBalanceManual bool
}

// MetadataEmbedder is the external collaborator that writes the final
// JPEG and embeds EXIF plus a thumbnail. EXIF serialization itself is
// out of core scope.
type MetadataEmbedder interface {
	EncodeJPEG(rgb []byte, width, height, quality int) ([]byte, error)
	EmbedEXIF(jpegData []byte, tags EXIFTags, thumbnail []byte) ([]byte, error)
}

// ProgressListener receives progress callbacks as Process runs.
type ProgressListener interface {
	OnProgressUpdate(percent int)
	OnCompleted()
	OnError(message string)
}

// NullProgressListener discards all callbacks; useful for tests and
// library callers who don't care about progress.
type NullProgressListener struct{}

func (NullProgressListener) OnProgressUpdate(int)  {}
func (NullProgressListener) OnCompleted()          {}
func (NullProgressListener) OnError(string)        {}
