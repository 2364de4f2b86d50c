// Package pipeline is the orchestrator: it drives deinterleave -> wavelet
// forward -> per-candidate flow+fusion -> wavelet inverse+shrinkage ->
// scene analysis -> postprocess -> encode -> DNG/EXIF. It lives outside
// package rawburst to avoid an import cycle (rawburst is imported by
// every stage package below).
//
// Grounded on pkg/eclipse/fusedimage.go's Align -> Fuse -> Tonemap ->
// WriteToHDR driver shape and cmd/eclipse-hdr/eclipse-hdr.go's
// log.Printf narration style.
package pipeline

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/abworrall/rawburst/internal/colorprofile"
	"github.com/abworrall/rawburst/internal/debugviz"
	"github.com/abworrall/rawburst/internal/deinterleave"
	"github.com/abworrall/rawburst/internal/dng"
	"github.com/abworrall/rawburst/internal/exifembed"
	"github.com/abworrall/rawburst/internal/flow"
	"github.com/abworrall/rawburst/internal/fusion"
	"github.com/abworrall/rawburst/internal/preview"
	"github.com/abworrall/rawburst/internal/rawburst"
	"github.com/abworrall/rawburst/internal/rawmath"
	"github.com/abworrall/rawburst/internal/scene"
	"github.com/abworrall/rawburst/internal/tonemap"
	"github.com/abworrall/rawburst/internal/wavelet"
)

// Denoiser drives one end-to-end burst-to-JPEG(+DNG) run.
type Denoiser struct {
	DNGWriter rawburst.DNGWriter
	Embedder  rawburst.MetadataEmbedder
	Listener  rawburst.ProgressListener

	// DebugDir, if set, makes Process dump the reference plane's finest
	// noise sub-band and the final denoised planes as labeled grayscale
	// PNGs under this directory.
	DebugDir string
}

func (d *Denoiser) dumpDebugGrid(g rawmath.Grid, name string) {
	if d.DebugDir == "" {
		return
	}
	path := filepath.Join(d.DebugDir, name+".png")
	if err := debugviz.SaveGrid(g, name, path); err != nil {
		log.Printf("rawburst: debug dump %s failed: %v\n", name, err)
	}
}

// New returns a Denoiser; a nil Listener is replaced with a no-op one.
func New(dngWriter rawburst.DNGWriter, embedder rawburst.MetadataEmbedder, listener rawburst.ProgressListener) *Denoiser {
	if listener == nil {
		listener = rawburst.NullProgressListener{}
	}
	return &Denoiser{DNGWriter: dngWriter, Embedder: embedder, Listener: listener}
}

// perChannel is what carries through the fuse loop for one CFA channel.
type perChannel struct {
	refPyramid wavelet.Pyramid
	outPyramid wavelet.Pyramid
	noiseSigma float64
}

// Process runs the full pipeline against container and writes the JPEG
// (and, if requested, the DNG) to outputPath.
func (d *Denoiser) Process(container rawburst.Container, outputPath string) error {
	frames := container.GetFrames()
	if len(frames) == 0 {
		err := rawburst.InvalidInputf("pipeline.Process", "no frames")
		d.Listener.OnError(err.Error())
		return err
	}

	refID := container.GetReferenceImage()
	log.Printf("rawburst: denoising %d frame(s), reference=%s\n", len(frames), refID)

	cam := container.GetCameraMetadata()
	settings := container.GetPostProcessSettings()

	refBuf, err := container.LoadFrame(refID)
	if err != nil {
		wrapped := rawburst.IOErrorf("pipeline.Process", err)
		d.Listener.OnError(wrapped.Error())
		return wrapped
	}

	halfW, halfH := refBuf.Width/2, refBuf.Height/2
	extendX := padTo64(halfW) - halfW
	extendY := padTo64(halfH) - halfH

	refPlanes, err := loadDeinterleaved(refBuf, cam, halfW, halfH, extendX, extendY)
	container.ReleaseFrame(refID)
	if err != nil {
		d.Listener.OnError(err.Error())
		return err
	}

	channels := make([]perChannel, 4)
	for c := 0; c < 4; c++ {
		pyr := wavelet.Forward(refPlanes.Plane[c])
		channels[c] = perChannel{
			refPyramid: pyr,
			outPyramid: pyr,
			noiseSigma: wavelet.NoiseSigma(pyr.Levels[0]),
		}
		d.dumpDebugGrid(pyr.Levels[0].Bands[wavelet.HH].Value, fmt.Sprintf("ref-channel%d-hh0", c))
	}

	fusedCount := 1
	progressStep := 75.0 / float64(len(frames)*4)
	progress := 0.0

	for _, id := range frames {
		if id == refID {
			continue
		}

		candBuf, err := container.LoadFrame(id)
		if err != nil {
			wrapped := rawburst.IOErrorf("pipeline.Process", err)
			d.Listener.OnError(wrapped.Error())
			return wrapped
		}
		candPlanes, err := loadDeinterleaved(candBuf, cam, halfW, halfH, extendX, extendY)
		container.ReleaseFrame(id)
		if err != nil {
			d.Listener.OnError(err.Error())
			return err
		}

		flowOpts := flow.DefaultOptions()
		flowField := flow.Estimate(refPlanes.Preview, candPlanes.Preview, refPlanes.Width, refPlanes.Height, flowOpts)
		flowStdDev := flow.StdDevMagnitude(flowField)

		regime := fusion.SelectRegime(refBuf.Metadata.ISO, refBuf.Metadata.ExposureTimeNanos, flowStdDev)
		resetOutput := fusedCount == 1

		for c := 0; c < 4; c++ {
			candPyr := wavelet.Forward(candPlanes.Plane[c])
			fusion.Fuse(&channels[c].refPyramid, &channels[c].outPyramid, candPyr, flowField, channels[c].noiseSigma, regime, resetOutput)

			progress += progressStep
			d.Listener.OnProgressUpdate(int(progress))
		}

		fusedCount++
	}
	if len(frames) == 1 {
		d.Listener.OnProgressUpdate(75)
	}

	asShotVec := rawmath.Vec3(refBuf.Metadata.AsShot)
	var profile colorprofile.Profile
	if settings.Temperature > 0 || settings.Tint > 0 {
		profile, err = colorprofile.ForTemperature(cam, settings.Temperature, asShotVec)
	} else {
		profile, err = colorprofile.ForAsShot(cam, asShotVec)
	}
	if err != nil {
		d.Listener.OnError(err.Error())
		return err
	}

	denoised := [4]rawmath.Grid{}
	for c := 0; c < 4; c++ {
		tau := settings.SpatialDenoiseAggressiveness * channels[c].noiseSigma / math.Sqrt(float64(fusedCount))
		denoised[c] = wavelet.Inverse(channels[c].outPyramid, tau)
		clampGrid(denoised[c], float32(cam.BlackLevel[c]), 16384)
		d.dumpDebugGrid(denoised[c], fmt.Sprintf("denoised-channel%d", c))
	}
	settings.NoiseSigma = channels[0].noiseSigma

	if container.GetWriteDNG() {
		if err := d.writeDNG(outputPath, denoised, cam, refBuf.Metadata, halfW, halfH); err != nil {
			d.Listener.OnError(err.Error())
			return err
		}
	}

	tmIn := tonemap.Input{
		Planes:   denoised,
		OffsetX:  extendX,
		OffsetY:  extendY,
		Frame:    refBuf.Metadata,
		Camera:   cam,
		Settings: settings,
		Profile:  profile,
	}
	settings = analyzeScene(tmIn)
	tmIn.Settings = settings

	rgb, w, h, err := tonemap.Render(tmIn)
	if err != nil {
		wrapped := rawburst.ExternalWriterErrorf("pipeline.Process", err)
		d.Listener.OnError(wrapped.Error())
		return wrapped
	}
	d.Listener.OnProgressUpdate(95)

	jpegData, err := d.Embedder.EncodeJPEG(rgb, w, h, settings.JpegQuality)
	if err != nil {
		wrapped := rawburst.ExternalWriterErrorf("pipeline.Process", err)
		d.Listener.OnError(wrapped.Error())
		return wrapped
	}

	thumb := buildThumbnail(rgb, w, h, 320)
	thumbJPEG, err := d.Embedder.EncodeJPEG(thumb.pix, thumb.w, thumb.h, settings.JpegQuality)
	if err != nil {
		wrapped := rawburst.ExternalWriterErrorf("pipeline.Process", err)
		d.Listener.OnError(wrapped.Error())
		return wrapped
	}

	tags := exifembed.Build(refBuf.Metadata, cam, settings.Flipped)
	finalJPEG, err := d.Embedder.EmbedEXIF(jpegData, tags, thumbJPEG)
	if err != nil {
		wrapped := rawburst.ExternalWriterErrorf("pipeline.Process", err)
		d.Listener.OnError(wrapped.Error())
		return wrapped
	}

	if err := os.WriteFile(outputPath, finalJPEG, 0644); err != nil {
		wrapped := rawburst.IOErrorf("pipeline.Process", err)
		d.Listener.OnError(wrapped.Error())
		return wrapped
	}

	d.Listener.OnProgressUpdate(100)
	d.Listener.OnCompleted()
	return nil
}

func padTo64(v int) int {
	const l = 64
	if v%l == 0 {
		return v
	}
	return (v/l + 1) * l
}

func loadDeinterleaved(buf *rawburst.RawImageBuffer, cam rawburst.RawCameraMetadata, halfW, halfH, extendX, extendY int) (deinterleave.Planes, error) {
	scoped := buf.Lock()
	defer scoped.Release()

	opts := deinterleave.Options{
		RowStride:  buf.RowStride,
		HalfWidth:  halfW,
		HalfHeight: halfH,
		ExtendX:    extendX,
		ExtendY:    extendY,
		WhiteLevel: cam.WhiteLevel,
		BlackLevel: cam.BlackLevel,
	}
	return deinterleave.Deinterleave(buf.PixelFormat, scoped.Bytes(), opts)
}

func clampGrid(g rawmath.Grid, lo, hi float32) {
	for i, v := range g.Vals {
		if v < lo {
			g.Vals[i] = lo
		} else if v > hi {
			g.Vals[i] = hi
		}
	}
}

// analyzeScene fills in any settings a caller left at their zero value
// with the scene package's histogram-based estimates, mirroring
// PostProcessSettings' doc comment that these fields "come from" the
// scene analyzer when not overridden.
func analyzeScene(in tonemap.Input) rawburst.PostProcessSettings {
	s := in.Settings

	luma := rawmath.NewGrid(in.Planes[0].W, in.Planes[0].H)
	for i := range luma.Vals {
		luma.Vals[i] = 0.25*in.Planes[0].Vals[i] + 0.25*in.Planes[1].Vals[i] + 0.25*in.Planes[2].Vals[i] + 0.25*in.Planes[3].Vals[i]
	}

	if s.Blacks == 0 && s.WhitePoint == 0 {
		est := scene.EstimateSettings(luma)
		s.Blacks = est.Blacks
		s.WhitePoint = est.WhitePoint
		s.SceneLuminance = est.SceneLuminance
	}

	if s.Shadows == 0 {
		render := func(shadows float64) float64 {
			trial := in
			trial.Settings = s
			trial.Settings.Shadows = shadows
			bgra, _, _, err := preview.Render(trial, preview.Options{Orientation: rawburst.Landscape, Scale: preview.Eighth})
			if err != nil {
				return 0
			}
			return preview.MeanLuminance(bgra)
		}
		s.Shadows = scene.EstimateShadows(render)
	}

	return s
}

func (d *Denoiser) writeDNG(outputPath string, planes [4]rawmath.Grid, cam rawburst.RawCameraMetadata, frame rawburst.RawImageMetadata, halfW, halfH int) error {
	if d.DNGWriter == nil {
		return nil
	}
	packed := [4][]uint16{}
	for c := 0; c < 4; c++ {
		packed[c] = make([]uint16, halfW*halfH)
		for y := 0; y < halfH; y++ {
			for x := 0; x < halfW; x++ {
				packed[c][y*halfW+x] = uint16(planes[c].At(x, y))
			}
		}
	}
	reordered := dng.ReorderToRGGB(cam.SensorArrangement, packed)

	fullW := halfW * 2
	fullH := halfH * 2
	interleaved := make([]uint16, fullW*fullH)
	for y := 0; y < halfH; y++ {
		for x := 0; x < halfW; x++ {
			interleaved[(2*y)*fullW+2*x] = reordered[0][y*halfW+x]
			interleaved[(2*y)*fullW+2*x+1] = reordered[1][y*halfW+x]
			interleaved[(2*y+1)*fullW+2*x] = reordered[2][y*halfW+x]
			interleaved[(2*y+1)*fullW+2*x+1] = reordered[3][y*halfW+x]
		}
	}

	img := rawburst.DNGImage{Width: fullW, Height: fullH, Pix: interleaved}
	opts := dng.BuildWriteOptions(cam, frame, fullW, fullH)

	dngPath := stripExt(outputPath) + ".dng"
	if err := d.DNGWriter.WriteDNG(dngPath, img, cam, frame, opts); err != nil {
		return rawburst.ExternalWriterErrorf("pipeline.writeDNG", err)
	}
	return nil
}

func stripExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

type thumbnail struct {
	pix  []byte
	w, h int
}

// buildThumbnail nearest-neighbor-downsamples an interleaved RGB image to
// a target width, preserving aspect ratio, for EXIF thumbnail embedding.
func buildThumbnail(rgb []byte, w, h, targetW int) thumbnail {
	if w <= targetW {
		return thumbnail{pix: rgb, w: w, h: h}
	}
	targetH := h * targetW / w
	if targetH < 1 {
		targetH = 1
	}
	out := make([]byte, targetW*targetH*3)
	for y := 0; y < targetH; y++ {
		sy := y * h / targetH
		for x := 0; x < targetW; x++ {
			sx := x * w / targetW
			si := (sy*w + sx) * 3
			di := (y*targetW + x) * 3
			out[di], out[di+1], out[di+2] = rgb[si], rgb[si+1], rgb[si+2]
		}
	}
	return thumbnail{pix: out, w: targetW, h: targetH}
}
