// Package dirtiff is a reference rawburst.Container: a directory of
// per-frame 16-bit grayscale TIFFs plus a JSON metadata sidecar.
// Grounded on pkg/eclipse/load.go's directory-walk-and-loadTIFF shape,
// generalized from "TIFF is the pixel container" (true here too) to
// "each frame also carries a JSON metadata sidecar", since
// RawImageMetadata/RawCameraMetadata have no EXIF-tag analogue the way
// an aperture/shutter/ISO triple loaded straight from a JPEG would.
package dirtiff

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/abworrall/rawburst/internal/rawburst"
)

// manifest is the directory's top-level manifest.json.
type manifest struct {
	Frames    []string
	Reference string
	Camera    rawburst.RawCameraMetadata
	Settings  rawburst.PostProcessSettings
	WriteDNG  bool
}

// Container reads a burst from a directory laid out as:
//
//	manifest.json
//	<frameID>.tif   16-bit grayscale TIFF, packed raw16 samples
//	<frameID>.json  RawImageMetadata
type Container struct {
	dir string
	man manifest
}

// Open reads manifest.json from dir.
func Open(dir string) (*Container, error) {
	path := filepath.Join(dir, "manifest.json")
	f, err := os.Open(path)
	if err != nil {
		return nil, rawburst.IOErrorf("dirtiff.Open", err)
	}
	defer f.Close()

	var man manifest
	if err := json.NewDecoder(f).Decode(&man); err != nil {
		return nil, rawburst.InvalidInputf("dirtiff.Open", "parse manifest: %v", err)
	}
	return &Container{dir: dir, man: man}, nil
}

func (c *Container) GetFrames() []string           { return c.man.Frames }
func (c *Container) GetReferenceImage() string      { return c.man.Reference }
func (c *Container) GetCameraMetadata() rawburst.RawCameraMetadata { return c.man.Camera }
func (c *Container) GetPostProcessSettings() rawburst.PostProcessSettings {
	return c.man.Settings
}
func (c *Container) GetWriteDNG() bool { return c.man.WriteDNG }

// GetFrame returns metadata only, with an empty data buffer; cheap.
func (c *Container) GetFrame(id string) (*rawburst.RawImageBuffer, error) {
	md, w, h, err := c.readMetadataAndDims(id)
	if err != nil {
		return nil, err
	}
	return rawburst.NewRawImageBuffer(w, h, w*2, rawburst.PixelFormatRaw16, nil, md), nil
}

// LoadFrame reads and decodes the frame's pixels into a lockable buffer.
func (c *Container) LoadFrame(id string) (*rawburst.RawImageBuffer, error) {
	md, err := c.readMetadata(id)
	if err != nil {
		return nil, err
	}

	imgPath := filepath.Join(c.dir, id+".tif")
	f, err := os.Open(imgPath)
	if err != nil {
		return nil, rawburst.IOErrorf("dirtiff.LoadFrame", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, rawburst.IOErrorf("dirtiff.LoadFrame", err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, rawburst.InvalidStatef("dirtiff.LoadFrame", "%s is not a 16-bit grayscale TIFF", id)
	}

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	data := make([]byte, w*h*2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gray.Gray16At(x, y).Y
			i := (y*w + x) * 2
			data[i] = byte(v)
			data[i+1] = byte(v >> 8)
		}
	}

	return rawburst.NewRawImageBuffer(w, h, w*2, rawburst.PixelFormatRaw16, data, md), nil
}

func (c *Container) ReleaseFrame(id string) {}

func (c *Container) readMetadata(id string) (rawburst.RawImageMetadata, error) {
	path := filepath.Join(c.dir, id+".json")
	f, err := os.Open(path)
	if err != nil {
		return rawburst.RawImageMetadata{}, rawburst.IOErrorf("dirtiff.readMetadata", err)
	}
	defer f.Close()

	var md rawburst.RawImageMetadata
	if err := json.NewDecoder(f).Decode(&md); err != nil {
		return rawburst.RawImageMetadata{}, rawburst.InvalidInputf("dirtiff.readMetadata", "parse %s: %v", id, err)
	}
	return md, nil
}

func (c *Container) readMetadataAndDims(id string) (rawburst.RawImageMetadata, int, int, error) {
	md, err := c.readMetadata(id)
	if err != nil {
		return md, 0, 0, err
	}

	f, err := os.Open(filepath.Join(c.dir, id+".tif"))
	if err != nil {
		return md, 0, 0, rawburst.IOErrorf("dirtiff.readMetadataAndDims", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return md, 0, 0, rawburst.IOErrorf("dirtiff.readMetadataAndDims", err)
	}
	return md, cfg.Width, cfg.Height, nil
}
