// Package cliapp holds the default rawburst.DNGWriter,
// rawburst.MetadataEmbedder and rawburst.ProgressListener implementations
// cmd/rawburst-denoise wires up. Both external-writer interfaces are
// deliberately thin: DNG and EXIF serialization are out of core scope,
// kept behind interfaces so a caller can drop in a real encoder without
// touching the pipeline.
package cliapp

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"log"
	"os"

	"github.com/abworrall/rawburst/internal/rawburst"
)

// JPEGEmbedder encodes with the standard library's JPEG encoder and embeds
// EXIF as a no-op (see package doc): the thumbnail is discarded and the
// tags are logged instead of written, since neither goexif (decode-only,
// per internal/exifembed's doc comment) nor any other library in this
// module's dependency set writes EXIF/APP1 segments.
type JPEGEmbedder struct{}

func (JPEGEmbedder) EncodeJPEG(rgb []byte, width, height, quality int) ([]byte, error) {
	img := &image.RGBA{Pix: interleaveAlpha(rgb, width, height), Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, rawburst.ExternalWriterErrorf("cliapp.EncodeJPEG", err)
	}
	return buf.Bytes(), nil
}

func (JPEGEmbedder) EmbedEXIF(jpegData []byte, tags rawburst.EXIFTags, thumbnail []byte) ([]byte, error) {
	log.Printf("rawburst: EXIF tags (not embedded, no writer wired): %+v, thumbnail %d bytes\n", tags, len(thumbnail))
	return jpegData, nil
}

func interleaveAlpha(rgb []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		out[i*4+0] = rgb[i*3+0]
		out[i*4+1] = rgb[i*3+1]
		out[i*4+2] = rgb[i*3+2]
		out[i*4+3] = 0xff
	}
	return out
}

// PlainDNGWriter writes the raw RGGB mosaic as a headerless little-endian
// uint16 dump and logs the options a real DNG encoder would need; no
// sidecar file is written. See package doc for why no such encoder is
// wired here.
type PlainDNGWriter struct{}

func (PlainDNGWriter) WriteDNG(path string, img rawburst.DNGImage, cam rawburst.RawCameraMetadata, frame rawburst.RawImageMetadata, opts rawburst.DNGWriteOptions) error {
	buf := make([]byte, len(img.Pix)*2)
	for i, v := range img.Pix {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return rawburst.IOErrorf("cliapp.WriteDNG", err)
	}
	log.Printf("rawburst: wrote raw mosaic %dx%d to %s (options: %+v)\n", img.Width, img.Height, path, opts)
	return nil
}

// LogProgressListener narrates progress the way cmd/eclipse-hdr/eclipse-hdr.go
// narrates loading and alignment: a log.Printf per event.
type LogProgressListener struct{}

func (LogProgressListener) OnProgressUpdate(percent int) {
	log.Printf("rawburst: %d%%\n", percent)
}
func (LogProgressListener) OnCompleted() {
	log.Printf("rawburst: done\n")
}
func (LogProgressListener) OnError(message string) {
	log.Printf("rawburst: error: %s\n", message)
}
