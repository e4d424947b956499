package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
)

func gradient(h, w int) pixel.Buffer {
	buf := pixel.New(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(y, x, uint8(x*40), uint8(y*30), uint8((x+y)*10))
		}
	}
	return buf
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return b.Bytes()
}

func TestBase64RoundTrip(t *testing.T) {
	in := gradient(4, 5)
	s, err := EncodeBase64(in)
	if err != nil {
		t.Fatalf("EncodeBase64: %v", err)
	}
	out, err := Decode(pixel.FromBase64(s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Height != 4 || out.Width != 5 {
		t.Fatalf("shape = (%d, %d), want (4, 5)", out.Height, out.Width)
	}
	if !bytes.Equal(in.Pix, out.Pix) {
		t.Error("round trip altered pixel data")
	}
}

func TestDecode_DataURL(t *testing.T) {
	s, err := EncodeBase64(gradient(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(pixel.FromBase64("data:image/png;base64," + s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Height != 2 || out.Width != 2 {
		t.Errorf("shape = (%d, %d)", out.Height, out.Width)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  pixel.Source
	}{
		{"empty", pixel.Source{}},
		{"bad alphabet", pixel.FromBase64("not*base64!")},
		{"missing padding", pixel.FromBase64("aGVsbG8")},
		{"not an image", pixel.FromBase64(base64.StdEncoding.EncodeToString([]byte("hello world")))},
		{"data url without base64", pixel.FromBase64("data:image/png,abcd")},
		{"garbage bytes", pixel.FromBytes([]byte{0x00, 0x01, 0x02})},
		{"bad buffer", pixel.FromBuffer(pixel.Buffer{Height: 2, Width: 2, Pix: make([]uint8, 16)})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.src)
			if !errors.Is(err, domain.ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestDecode_BufferPassthrough(t *testing.T) {
	in := gradient(3, 3)
	out, err := Decode(pixel.FromBuffer(in))
	if err != nil {
		t.Fatal(err)
	}
	if &out.Pix[0] != &in.Pix[0] {
		t.Error("expected buffer to be returned unchanged")
	}
}

func TestDecodeBytes_DropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0x80})

	out, err := DecodeBytes(encode(t, img))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b := out.At(0, 0)
	if r != 200 || g != 100 || b != 50 {
		t.Errorf("At(0,0) = (%d, %d, %d), want (200, 100, 50)", r, g, b)
	}
}

func TestDecodeBytes_Gray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(1, 0, color.Gray{Y: 77})

	out, err := DecodeBytes(encode(t, img))
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b := out.At(0, 1); r != 77 || g != 77 || b != 77 {
		t.Errorf("At(0,1) = (%d, %d, %d), want gray 77", r, g, b)
	}
}

func TestDecodeBytes_JPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	var b bytes.Buffer
	if err := jpeg.Encode(&b, img, nil); err != nil {
		t.Fatal(err)
	}
	out, err := DecodeBytes(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if out.Height != 6 || out.Width != 8 || len(out.Pix) != 6*8*3 {
		t.Errorf("shape = (%d, %d) len %d", out.Height, out.Width, len(out.Pix))
	}
}
