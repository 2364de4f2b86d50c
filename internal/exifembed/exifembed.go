// Package exifembed builds the EXIFTags value the external
// MetadataEmbedder interface consumes. rwcarlsen/goexif (used for
// decoding in pkg/eclipse/load.go) is a read-only library with no
// tag-writing API, so it has no role here; this package's orientation
// codes and field values are the plain EXIF 2.3 constants, not derived
// from that library.
package exifembed

import (
	"github.com/abworrall/rawburst/internal/rawburst"
)

// orientationTable maps (screenOrientation, flipped) to the 8 EXIF
// orientation codes.
var orientationTable = map[rawburst.ScreenOrientation][2]int{
	rawburst.Landscape:         {1, 2},
	rawburst.ReverseLandscape:  {3, 4},
	rawburst.Portrait:          {6, 5},
	rawburst.ReversePortrait:   {8, 7},
}

// Orientation returns the EXIF orientation tag for one of the 8
// (orientation, flipped) combinations.
func Orientation(o rawburst.ScreenOrientation, flipped bool) int {
	pair, ok := orientationTable[o]
	if !ok {
		return 1
	}
	if flipped {
		return pair[1]
	}
	return pair[0]
}

// Build assembles the EXIFTags value for one output frame.
func Build(frame rawburst.RawImageMetadata, cam rawburst.RawCameraMetadata, flipped bool) rawburst.EXIFTags {
	var aperture float64
	if len(cam.Apertures) > 0 {
		aperture = cam.Apertures[0]
	}
	var focalLength float64
	if len(cam.FocalLengths) > 0 {
		focalLength = cam.FocalLengths[0]
	}

	return rawburst.EXIFTags{
		ISO:                frame.ISO,
		ExposureSeconds:    rawburst.Rational{Num: frame.ExposureTimeNanos, Den: 1_000_000_000},
		Orientation:        Orientation(frame.ScreenOrientation, flipped),
		Aperture:           aperture,
		FocalLengthMM:      focalLength,
		LensModel:          "MotionCam",
		ColorSpaceSRGB:     true,
		SceneType:          1,
		ResolutionDPI:      72,
		WhiteBalanceManual: true,
	}
}
