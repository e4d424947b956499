// Package codec turns user-supplied images into canonical RGB pixel buffers.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
)

// MaxPixels bounds decoded image area to keep a single request from exhausting memory.
const MaxPixels = 40_000_000

// Decode converts src into an RGB buffer.
// Buffers are validated and returned as is; base64 and byte inputs are decoded
// with format auto-detection and converted to RGB.
func Decode(src pixel.Source) (pixel.Buffer, error) {
	switch src.Kind() {
	case pixel.SourceBuffer:
		buf := src.Buffer()
		if err := buf.Validate(); err != nil {
			return pixel.Buffer{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
		}
		return buf, nil
	case pixel.SourceBase64:
		raw, err := DecodeBase64(src.Base64())
		if err != nil {
			return pixel.Buffer{}, err
		}
		return DecodeBytes(raw)
	case pixel.SourceBytes:
		return DecodeBytes(src.Bytes())
	default:
		return pixel.Buffer{}, fmt.Errorf("%w: no image supplied", domain.ErrDecode)
	}
}

// DecodeBase64 decodes standard padded base64, accepting an optional data URL prefix.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: data URL is not base64 encoded", domain.ErrDecode)
		}
		s = payload
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %w", domain.ErrDecode, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image data", domain.ErrDecode)
	}
	return raw, nil
}

// DecodeBytes decodes an image container (PNG, JPEG, GIF, WebP, BMP) into RGB.
func DecodeBytes(data []byte) (pixel.Buffer, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return pixel.Buffer{}, fmt.Errorf("%w: unrecognized image: %w", domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return pixel.Buffer{}, fmt.Errorf("%w: %s image size %dx%d out of bounds",
			domain.ErrDecode, format, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return pixel.Buffer{}, fmt.Errorf("%w: %s: %w", domain.ErrDecode, format, err)
	}
	return toRGB(img), nil
}

// toRGB drops alpha without compositing, matching a plain mode conversion to RGB.
func toRGB(img image.Image) pixel.Buffer {
	b := img.Bounds()
	out := pixel.New(b.Dy(), b.Dx())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+out.Width*4]
			for x := 0; x < out.Width; x++ {
				out.Set(y, x, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				v := src.Pix[y*src.Stride+x]
				out.Set(y, x, v, v, v)
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				out.Set(y, x, c.R, c.G, c.B)
			}
		}
	}
	return out
}

// EncodePNG encodes buf as a lossless PNG.
func EncodePNG(buf pixel.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b := buf.At(y, x)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 0xff
		}
	}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

// EncodeBase64 encodes buf as base64 PNG.
func EncodeBase64(buf pixel.Buffer) (string, error) {
	data, err := EncodePNG(buf)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
