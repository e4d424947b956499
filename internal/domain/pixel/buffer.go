// Package pixel holds the canonical in-memory RGB image used by inference requests.
package pixel

import (
	"errors"
	"fmt"
)

// Channels is the fixed channel count of a Buffer (R, G, B).
const Channels = 3

// ErrInvalidBuffer signals a buffer whose shape and data disagree.
var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// Buffer is an interleaved 8-bit RGB image of shape (Height, Width, 3).
type Buffer struct {
	Height int
	Width  int
	Pix    []uint8
}

// New allocates a black buffer of the given size.
func New(height, width int) Buffer {
	return Buffer{Height: height, Width: width, Pix: make([]uint8, height*width*Channels)}
}

// Validate checks the (H, W, 3) invariant.
func (b Buffer) Validate() error {
	if b.Height <= 0 || b.Width <= 0 {
		return fmt.Errorf("%w: shape (%d, %d) must be positive", ErrInvalidBuffer, b.Height, b.Width)
	}
	if want := b.Height * b.Width * Channels; len(b.Pix) != want {
		return fmt.Errorf("%w: expected %d samples for shape (%d, %d, %d), got %d",
			ErrInvalidBuffer, want, b.Height, b.Width, Channels, len(b.Pix))
	}
	return nil
}

// Shape returns (height, width).
func (b Buffer) Shape() (int, int) { return b.Height, b.Width }

// At returns the RGB triple at row y, column x.
func (b Buffer) At(y, x int) (r, g, bl uint8) {
	i := (y*b.Width + x) * Channels
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// Set writes the RGB triple at row y, column x.
func (b Buffer) Set(y, x int, r, g, bl uint8) {
	i := (y*b.Width + x) * Channels
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
}
