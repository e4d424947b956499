package domain

import "math"

// Vector kinds used for labels and error messages.
const (
	KindPose     = "pose"
	KindSemantic = "semantic"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b.
// The result is exactly 0 when either vector has zero norm.
// Callers must pass vectors of equal length; extra components of the longer one are ignored.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push |c| slightly above 1.
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// ZeroVector returns a zero vector of the given dimension.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// CheckDim returns a DimMismatchError when expected > 0 and len(v) differs.
func CheckDim(kind string, v []float32, expected int) error {
	if expected > 0 && len(v) != expected {
		return &DimMismatchError{Kind: kind, Expected: expected, Got: len(v)}
	}
	return nil
}
