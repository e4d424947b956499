package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/posedex/internal/codec"
	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/pixel"
	"github.com/kailas-cloud/posedex/internal/domain/search/request"
)

func TestService_EmbedText(t *testing.T) {
	svc := New(&mockEmbedder{vec: []float32{1, 2}})

	vecs, err := svc.EmbedText(context.Background(), []string{"a person dancing", "a cat"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(vecs))
	}
}

func TestService_EmbedText_Invalid(t *testing.T) {
	svc := New(&mockEmbedder{vec: []float32{1}})

	tests := []struct {
		name  string
		texts []string
	}{
		{"nil", nil},
		{"blank", []string{"ok", "  "}},
		{"too long", []string{strings.Repeat("x", request.MaxTextLength+1)}},
		{"too many", make([]string, MaxTexts+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.EmbedText(context.Background(), tc.texts, false)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestService_EmbedImage(t *testing.T) {
	svc := New(&mockEmbedder{vec: []float32{0.5}})

	s, err := codec.EncodeBase64(pixel.New(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	vec, err := svc.EmbedImage(context.Background(), pixel.FromBase64(s), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 1 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestService_EmbedImage_Errors(t *testing.T) {
	svc := New(&mockEmbedder{vec: []float32{0.5}})

	if _, err := svc.EmbedImage(context.Background(), pixel.Source{}, false); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty image: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.EmbedImage(context.Background(), pixel.FromBase64("!!"), false); !errors.Is(err, domain.ErrDecode) {
		t.Errorf("bad image: expected ErrDecode, got %v", err)
	}
}
