package deinterleave

import (
	"testing"

	"github.com/abworrall/rawburst/internal/rawburst"
)

func makeRaw16(halfW, halfH int, fill func(x, y int) uint16) ([]byte, int) {
	w, h := halfW*2, halfH*2
	rowStride := w * 2
	data := make([]byte, rowStride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := fill(x, y)
			i := y*rowStride + x*2
			data[i] = byte(v)
			data[i+1] = byte(v >> 8)
		}
	}
	return data, rowStride
}

func TestDeinterleave_RGGB_ExtractsCanonicalPlanes(t *testing.T) {
	const halfW, halfH = 4, 4
	data, rowStride := makeRaw16(halfW, halfH, func(x, y int) uint16 {
		return uint16(x + y*100)
	})

	planes, err := Deinterleave(rawburst.PixelFormatRaw16, data, Options{
		RowStride:  rowStride,
		HalfWidth:  halfW,
		HalfHeight: halfH,
		WhiteLevel: 1023,
	})
	if err != nil {
		t.Fatal(err)
	}
	if planes.Width != halfW || planes.Height != halfH {
		t.Fatalf("got %dx%d, want %dx%d", planes.Width, planes.Height, halfW, halfH)
	}

	// Plane 0 sits at (0,0) within each 2x2 tile, regardless of sensor
	// arrangement: cfaOffsets doesn't take one as input, so this holds by
	// construction for every arrangement.
	want := uint16(0)
	got := uint16(planes.Plane[0].At(0, 0))
	if got != want {
		t.Errorf("plane0(0,0): got %d, want %d", got, want)
	}
}

func TestDeinterleave_PadsWithEdgeClamp(t *testing.T) {
	const halfW, halfH = 4, 4
	data, rowStride := makeRaw16(halfW, halfH, func(x, y int) uint16 {
		return uint16(x + y*100)
	})

	planes, err := Deinterleave(rawburst.PixelFormatRaw16, data, Options{
		RowStride:  rowStride,
		HalfWidth:  halfW,
		HalfHeight: halfH,
		ExtendX:    4,
		ExtendY:    4,
		WhiteLevel: 1023,
	})
	if err != nil {
		t.Fatal(err)
	}
	if planes.Width != halfW+4 || planes.Height != halfH+4 {
		t.Fatalf("got %dx%d, want %dx%d", planes.Width, planes.Height, halfW+4, halfH+4)
	}

	edge := planes.Plane[0].At(halfW-1, 0)
	for x := halfW; x < planes.Width; x++ {
		if got := planes.Plane[0].At(x, 0); got != edge {
			t.Errorf("padded column %d: got %v, want clamp of edge %v", x, got, edge)
		}
	}
}

func TestDeinterleave_RejectsZeroDimensions(t *testing.T) {
	_, err := Deinterleave(rawburst.PixelFormatRaw16, nil, Options{HalfWidth: 0, HalfHeight: 4})
	if err == nil {
		t.Fatal("expected error for zero halfWidth")
	}
}

func TestDeinterleave_RejectsNegativeExtend(t *testing.T) {
	_, err := Deinterleave(rawburst.PixelFormatRaw16, nil, Options{HalfWidth: 4, HalfHeight: 4, ExtendX: -1})
	if err == nil {
		t.Fatal("expected error for negative extend")
	}
}
