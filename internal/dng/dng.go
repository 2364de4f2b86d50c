// Package dng builds the fields the external DNGWriter interface needs:
// per-CFA-position GainMap records, calibration-illuminant codes, and
// the CFA plane reorder that guarantees the written mosaic is RGGB
// regardless of sensor arrangement.
package dng

import (
	"github.com/abworrall/rawburst/internal/rawburst"
)

// Illuminant maps rawburst.Illuminant to the DNG TIFF-EP calibration
// illuminant codes (CIE 1931 standard illuminant table, ExifTags.h
// LightSource values reused by the DNG spec).
func Illuminant(i rawburst.Illuminant) int {
	switch i {
	case rawburst.StandardA:
		return 17
	case rawburst.StandardB:
		return 18
	case rawburst.StandardC:
		return 19
	case rawburst.D50:
		return 23
	case rawburst.D55:
		return 20
	case rawburst.D65:
		return 21
	case rawburst.D75:
		return 22
	default:
		return 0
	}
}

// BaseOrientation maps a capture-time screen orientation to the DNG base
// orientation.
func BaseOrientation(o rawburst.ScreenOrientation) rawburst.DNGOrientation {
	switch o {
	case rawburst.Landscape:
		return rawburst.DNGNormal
	case rawburst.Portrait:
		return rawburst.DNGRotate90CW
	case rawburst.ReverseLandscape:
		return rawburst.DNGRotate180
	case rawburst.ReversePortrait:
		return rawburst.DNGRotate90CCW
	default:
		return rawburst.DNGNormal
	}
}

// cfaReorder is the authoritative plane permutation table: do not attempt
// to re-derive it from sensor arrangement at write time. Index by sensor
// arrangement, value is the source plane index for each of the four
// canonical RGGB destination slots.
var cfaReorder = map[rawburst.SensorArrangement][4]int{
	rawburst.RGGB: {0, 1, 2, 3},
	rawburst.GRBG: {1, 0, 3, 2},
	rawburst.GBRG: {2, 0, 3, 1},
	rawburst.BGGR: {3, 1, 2, 0},
}

// ReorderToRGGB permutes planes so the result is always RGGB in
// row-major order, per the authoritative table above.
func ReorderToRGGB(arr rawburst.SensorArrangement, planes [4][]uint16) [4][]uint16 {
	order := cfaReorder[arr]
	var out [4][]uint16
	for dst, src := range order {
		out[dst] = planes[src]
	}
	return out
}

// GainMapOffsets are the top-left offsets for the four per-CFA-position
// GainMap opcodes.
var GainMapOffsets = [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// GainMap is one CFA position's lens-shading correction, shaped like the
// origin/extent/gain-array records ultrahdr's ISO gain-map metadata
// uses, adapted here to a single-plane multiplicative-gain DNG opcode
// instead of a multi-plane HDR gain map.
type GainMap struct {
	Top, Left     int
	RowPitch      int
	ColPitch      int
	MapPointsV    int
	MapPointsH    int
	MapGains      []float32
}

// BuildGainMaps converts the per-frame lens-shading grids into the four
// GainMap opcode records the DNG writer embeds.
func BuildGainMaps(lsm [4]rawburst.LensShadingGrid) [4]GainMap {
	var out [4]GainMap
	for i, g := range lsm {
		out[i] = GainMap{
			Top:        GainMapOffsets[i][1],
			Left:       GainMapOffsets[i][0],
			RowPitch:   2,
			ColPitch:   2,
			MapPointsV: g.Height,
			MapPointsH: g.Width,
			MapGains:   g.Gain,
		}
	}
	return out
}

// BuildWriteOptions assembles the full DNGWriteOptions the interface
// expects.
func BuildWriteOptions(cam rawburst.RawCameraMetadata, frame rawburst.RawImageMetadata, width, height int) rawburst.DNGWriteOptions {
	return rawburst.DNGWriteOptions{
		GainMaps:          frame.LensShadingMap,
		GainMapOffsets:    GainMapOffsets,
		CameraNeutral:     frame.AsShot,
		WhiteLevel:        16384,
		BaseOrientation:   BaseOrientation(frame.ScreenOrientation),
		NoiseReduction:    true,
		DefaultCropWidth:  width,
		DefaultCropHeight: height,
		Model:             "MotionCam",
		ProfileEmbedPolicy: "AllowCopying",
	}
}
