package cache

import (
	"context"
	"strings"
	"testing"
)

func TestEncodeDecodeVector(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"typical", []float32{0.1, -0.5, 2.25, 0}},
		{"single", []float32{1}},
		{"empty", []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeVector(tt.vec)

			got, err := decodeVector(data)
			if err != nil {
				t.Fatalf("decodeVector error = %v", err)
			}
			if len(got) != len(tt.vec) {
				t.Fatalf("decoded length = %d, want %d", len(got), len(tt.vec))
			}
			for i := range got {
				if got[i] != tt.vec[i] {
					t.Errorf("vec[%d] = %v, want %v", i, got[i], tt.vec[i])
				}
			}
		})
	}
}

func TestDecodeVectorCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{1, 2, 3}},
		{"bad magic", make([]byte, 16)},
		{"truncated payload", encodeVector([]float32{1, 2, 3})[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeVector(tt.data); err == nil {
				t.Error("decodeVector should reject corrupt data")
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	k1 := cacheKey("text-embedding-3-large", "func main() {}")
	k2 := cacheKey("text-embedding-3-large", "func main() {}")
	k3 := cacheKey("text-embedding-3-small", "func main() {}")
	k4 := cacheKey("text-embedding-3-large", "func other() {}")

	if k1 != k2 {
		t.Error("identical model+content should produce identical keys")
	}
	if k1 == k3 {
		t.Error("different models should produce different keys")
	}
	if k1 == k4 {
		t.Error("different content should produce different keys")
	}
	if !strings.HasPrefix(k1, "codegraph:emb:") {
		t.Errorf("key %q missing namespace prefix", k1)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *EmbeddingsCache

	if _, err := c.Get(context.Background(), "m", "content"); err != ErrCacheMiss {
		t.Errorf("nil cache Get error = %v, want ErrCacheMiss", err)
	}

	// Set and Close on a nil cache are no-ops.
	c.Set(context.Background(), "m", "content", []float32{1})
	if err := c.Close(); err != nil {
		t.Errorf("nil cache Close error = %v", err)
	}
}
