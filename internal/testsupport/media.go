package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// SampleFLAC returns a FLAC stream with a single STREAMINFO block followed by
// frameBytes of frame data that begins with a frame sync code.
func SampleFLAC(frameBytes int) []byte {
	if frameBytes < 2 {
		frameBytes = 2
	}
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 0x22})
	streamInfo := make([]byte, 34)
	streamInfo[0], streamInfo[1] = 0x10, 0x00
	streamInfo[2], streamInfo[3] = 0x10, 0x00
	streamInfo[10], streamInfo[11], streamInfo[12] = 0x0A, 0xC4, 0x42
	buf.Write(streamInfo)
	frames := make([]byte, frameBytes)
	frames[0], frames[1] = 0xFF, 0xF8
	buf.Write(frames)
	return buf.Bytes()
}

// SamplePNG returns a w by h PNG with a gradient fill.
func SamplePNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}
