package db

import (
	"math"
	"testing"
)

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.1, -0.5, 3.25, 0, 1e-7}

	blob := EncodeVector(vec)
	if len(blob) != 4*len(vec) {
		t.Fatalf("blob length = %d, want %d", len(blob), 4*len(vec))
	}

	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeVector() should reject a blob not divisible by 4")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_Scaled(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 4, 6}
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-6 {
		t.Errorf("scaled vectors should have similarity 1, got %v", got)
	}
}
