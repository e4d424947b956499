package domain

import (
	"errors"
	"math"
	"testing"
)

func TestCosine_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5, 2}, {3, -2, 0}},
		{{0.1, 0.2}, {0.2, 0.1}},
		{{1, 0}, {0, 0}},
	}
	for _, p := range pairs {
		if ab, ba := Cosine(p[0], p[1]), Cosine(p[1], p[0]); ab != ba {
			t.Errorf("Cosine(%v, %v) = %f, reversed = %f", p[0], p[1], ab, ba)
		}
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	zero := ZeroVector(3)
	for _, a := range [][]float32{{1, 2, 3}, {0, 0, 0}, {-5, 0, 1e-9}} {
		got := Cosine(a, zero)
		if got != 0 || math.IsNaN(got) {
			t.Errorf("Cosine(%v, zero) = %f, want 0", a, got)
		}
	}
}

func TestCosine_KnownValues(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{3, 4}, []float32{6, 8}, 1},
	}
	for _, tc := range tests {
		if got := Cosine(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Cosine(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float32{3, 4})
	if math.Abs(float64(got[0])-0.6) > 1e-6 || math.Abs(float64(got[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v", got)
	}
	if n := Norm(got); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm after Normalize = %f", n)
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize(zero) = %v", zero)
	}
}

func TestCheckDim(t *testing.T) {
	if err := CheckDim(KindPose, make([]float32, 4), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckDim(KindPose, make([]float32, 4), 0); err != nil {
		t.Fatalf("expected no check for zero expectation, got %v", err)
	}

	err := CheckDim(KindSemantic, make([]float32, 3), 4)
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	var dme *DimMismatchError
	if !errors.As(err, &dme) || dme.Got != 3 || dme.Expected != 4 || dme.Kind != KindSemantic {
		t.Errorf("unexpected DimMismatchError: %+v", dme)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("pose", "detect", 0, cause)

	if !errors.Is(err, ErrTransport) {
		t.Error("expected errors.Is(err, ErrTransport)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}
	if err.Error() != "pose detect: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}

	withStatus := NewTransportError("semantic", "encode_text", 503, cause)
	if withStatus.Error() != "semantic encode_text: status 503: connection refused" {
		t.Errorf("Error() = %q", withStatus.Error())
	}
}

func TestCorpusErrors_ShareParent(t *testing.T) {
	for _, err := range []error{ErrCorpusNotFound, ErrCorpusMalformed, ErrCorpusEmpty, ErrNoComparableEntries} {
		if !errors.Is(err, ErrCorpus) {
			t.Errorf("%v does not wrap ErrCorpus", err)
		}
	}
	if errors.Is(ErrCorpusEmpty, ErrNoComparableEntries) {
		t.Error("ErrCorpusEmpty must be distinct from ErrNoComparableEntries")
	}
}
