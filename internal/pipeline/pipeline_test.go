package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abworrall/rawburst/internal/rawburst"
)

// memContainer is an in-memory rawburst.Container for pipeline tests, so
// they don't depend on internal/container/dirtiff's on-disk layout.
type memContainer struct {
	frames    []string
	reference string
	buffers   map[string]*rawburst.RawImageBuffer
	cam       rawburst.RawCameraMetadata
	settings  rawburst.PostProcessSettings
	writeDNG  bool
}

func (m *memContainer) GetFrames() []string      { return m.frames }
func (m *memContainer) GetReferenceImage() string { return m.reference }
func (m *memContainer) GetFrame(id string) (*rawburst.RawImageBuffer, error) {
	return m.buffers[id], nil
}
func (m *memContainer) LoadFrame(id string) (*rawburst.RawImageBuffer, error) {
	return m.buffers[id], nil
}
func (m *memContainer) ReleaseFrame(id string) {}
func (m *memContainer) GetCameraMetadata() rawburst.RawCameraMetadata { return m.cam }
func (m *memContainer) GetPostProcessSettings() rawburst.PostProcessSettings {
	return m.settings
}
func (m *memContainer) GetWriteDNG() bool { return m.writeDNG }

// makeFrame builds a raw16 frame of (halfW*2, halfH*2) pixels, filled with
// a constant CFA value, and the metadata a real capture would carry.
func makeFrame(halfW, halfH int, value uint16, iso int, exposureNanos int64) *rawburst.RawImageBuffer {
	w, h := halfW*2, halfH*2
	rowStride := w * 2
	data := make([]byte, rowStride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*rowStride + x*2
			data[i] = byte(value)
			data[i+1] = byte(value >> 8)
		}
	}
	md := rawburst.RawImageMetadata{
		ISO:               iso,
		ExposureTimeNanos: exposureNanos,
		AsShot:            [3]float64{1, 1, 1},
		ScreenOrientation: rawburst.Landscape,
	}
	return rawburst.NewRawImageBuffer(w, h, rowStride, rawburst.PixelFormatRaw16, data, md)
}

func testCameraMetadata() rawburst.RawCameraMetadata {
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	return rawburst.RawCameraMetadata{
		SensorArrangement: rawburst.RGGB,
		WhiteLevel:        1023,
		ColorMatrix1:      identity, ColorMatrix2: identity,
		ForwardMatrix1: identity, ForwardMatrix2: identity,
		ColorIlluminant1: rawburst.StandardA, ColorIlluminant2: rawburst.D65,
	}
}

type recordingListener struct {
	progress []int
	errors   []string
	done     bool
}

func (r *recordingListener) OnProgressUpdate(p int) { r.progress = append(r.progress, p) }
func (r *recordingListener) OnCompleted()           { r.done = true }
func (r *recordingListener) OnError(msg string)     { r.errors = append(r.errors, msg) }

type nullDNGWriter struct{ called bool }

func (n *nullDNGWriter) WriteDNG(path string, img rawburst.DNGImage, cam rawburst.RawCameraMetadata, frame rawburst.RawImageMetadata, opts rawburst.DNGWriteOptions) error {
	n.called = true
	return nil
}

type jpegStubEmbedder struct {
	lastWidth, lastHeight *int
}

func (e jpegStubEmbedder) EncodeJPEG(rgb []byte, width, height, quality int) ([]byte, error) {
	if e.lastWidth != nil {
		*e.lastWidth = width
	}
	if e.lastHeight != nil {
		*e.lastHeight = height
	}
	return append([]byte("JPEG"), rgb...), nil
}
func (jpegStubEmbedder) EmbedEXIF(jpegData []byte, tags rawburst.EXIFTags, thumbnail []byte) ([]byte, error) {
	return jpegData, nil
}

func TestProcess_SingleFrameProducesOutputAndCompletes(t *testing.T) {
	const halfW, halfH = 8, 8 // small, but a multiple of 8 so padTo64 exercises real padding
	container := &memContainer{
		frames:    []string{"ref"},
		reference: "ref",
		buffers:   map[string]*rawburst.RawImageBuffer{"ref": makeFrame(halfW, halfH, 500, 100, 8_000_000)},
		cam:       testCameraMetadata(),
		settings:  rawburst.DefaultPostProcessSettings(),
	}

	listener := &recordingListener{}
	dngWriter := &nullDNGWriter{}
	var gotW, gotH int
	d := New(dngWriter, jpegStubEmbedder{lastWidth: &gotW, lastHeight: &gotH}, listener)

	out := filepath.Join(t.TempDir(), "out.jpg")
	if err := d.Process(container, out); err != nil {
		t.Fatal(err)
	}

	if !listener.done {
		t.Error("expected OnCompleted to be called")
	}
	if len(listener.errors) != 0 {
		t.Errorf("unexpected errors: %v", listener.errors)
	}
	if dngWriter.called {
		t.Error("DNG writer should not be called when GetWriteDNG() is false")
	}

	// The crop offset fed to the tonemap stage must equal the padding
	// added to reach a multiple of 64, not half of it: output dimensions
	// must come back out at exactly 2*halfW x 2*halfH.
	if gotW != halfW*2 || gotH != halfH*2 {
		t.Errorf("got %dx%d, want %dx%d (padding must round-trip exactly)", gotW, gotH, halfW*2, halfH*2)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty output file")
	}
}

func TestProcess_ProgressIsMonotonic(t *testing.T) {
	const halfW, halfH = 8, 8
	container := &memContainer{
		frames:    []string{"ref", "b"},
		reference: "ref",
		buffers: map[string]*rawburst.RawImageBuffer{
			"ref": makeFrame(halfW, halfH, 500, 100, 8_000_000),
			"b":   makeFrame(halfW, halfH, 510, 100, 8_000_000),
		},
		cam:      testCameraMetadata(),
		settings: rawburst.DefaultPostProcessSettings(),
	}

	listener := &recordingListener{}
	d := New(&nullDNGWriter{}, jpegStubEmbedder{}, listener)

	out := filepath.Join(t.TempDir(), "out.jpg")
	if err := d.Process(container, out); err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(listener.progress); i++ {
		if listener.progress[i] < listener.progress[i-1] {
			t.Errorf("progress went backwards: %v", listener.progress)
			break
		}
	}
	if listener.progress[len(listener.progress)-1] != 100 {
		t.Errorf("expected final progress 100, got %d", listener.progress[len(listener.progress)-1])
	}
}

func TestProcess_WritesDNGWhenRequested(t *testing.T) {
	const halfW, halfH = 8, 8
	container := &memContainer{
		frames:    []string{"ref"},
		reference: "ref",
		buffers:   map[string]*rawburst.RawImageBuffer{"ref": makeFrame(halfW, halfH, 500, 100, 8_000_000)},
		cam:       testCameraMetadata(),
		settings:  rawburst.DefaultPostProcessSettings(),
		writeDNG:  true,
	}

	dngWriter := &nullDNGWriter{}
	d := New(dngWriter, jpegStubEmbedder{}, &recordingListener{})

	out := filepath.Join(t.TempDir(), "out.jpg")
	if err := d.Process(container, out); err != nil {
		t.Fatal(err)
	}
	if !dngWriter.called {
		t.Error("expected DNG writer to be called")
	}
}

func TestProcess_NoFramesIsAnError(t *testing.T) {
	container := &memContainer{cam: testCameraMetadata(), settings: rawburst.DefaultPostProcessSettings()}
	listener := &recordingListener{}
	d := New(&nullDNGWriter{}, jpegStubEmbedder{}, listener)

	err := d.Process(container, filepath.Join(t.TempDir(), "out.jpg"))
	if err == nil {
		t.Fatal("expected error for empty container")
	}
	if len(listener.errors) == 0 {
		t.Error("expected OnError to be called")
	}
}
