// Package pose models detected 2D body keypoints and their reduction to the
// fixed COCO-17 skeleton consumed by the pose embedding backbone.
package pose

// Point is a 2D keypoint in source image pixel space.
type Point struct {
	X float32
	Y float32
}

// Keypoints maps detector joint names to coordinates. Empty means nobody was detected.
type Keypoints map[string]Point

// Empty reports whether no joint was detected.
func (k Keypoints) Empty() bool { return len(k) == 0 }

// Shape is the (height, width) of the image the keypoints were detected in.
type Shape struct {
	Height int
	Width  int
}

// DefaultShape is the shape assumed by the embedding backbone when none is known.
var DefaultShape = Shape{Height: 480, Width: 640}

// Valid reports whether both dimensions are positive.
func (s Shape) Valid() bool { return s.Height > 0 && s.Width > 0 }
