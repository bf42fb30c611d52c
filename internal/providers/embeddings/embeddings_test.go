package embeddings

import (
	"errors"
	"testing"
	"time"

	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/providers"
)

func TestNewOpenAIProvider(t *testing.T) {
	p := NewOpenAIProvider("test-key",
		WithOpenAIModel("text-embedding-3-small"),
		WithOpenAIDimensions(1536),
		WithOpenAITimeout(30*time.Second),
	)

	if p.Name() != "openai-embeddings" {
		t.Errorf("Name() = %q, want %q", p.Name(), "openai-embeddings")
	}
	if p.Type() != providers.ProviderTypeEmbeddings {
		t.Errorf("Type() = %q, want embeddings", p.Type())
	}
	if !p.Available() {
		t.Error("provider with key should be available")
	}
	if p.ModelName() != "text-embedding-3-small" {
		t.Errorf("ModelName() = %q", p.ModelName())
	}
	if p.Dimensions() != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", p.Dimensions())
	}
}

func TestOpenAIProviderDefaults(t *testing.T) {
	p := NewOpenAIProvider("")

	if p.Available() {
		t.Error("provider without key should not be available")
	}
	if p.ModelName() != "text-embedding-3-large" {
		t.Errorf("default model = %q", p.ModelName())
	}
	if p.Dimensions() != 3072 {
		t.Errorf("default dimensions = %d, want 3072", p.Dimensions())
	}
}

func TestNewGoogleProvider(t *testing.T) {
	p := NewGoogleProvider("test-key", WithGoogleDimensions(768))

	if p.Name() != "google-embeddings" {
		t.Errorf("Name() = %q", p.Name())
	}
	if !p.Available() {
		t.Error("provider with key should be available")
	}
	if p.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", p.Dimensions())
	}
}

func TestFactory(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantName string
		wantErr  bool
	}{
		{"openai", "openai", "openai-embeddings", false},
		{"google", "google", "google-embeddings", false},
		{"gemini alias", "gemini", "google-embeddings", false},
		{"unknown", "cohere", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.EmbeddingsConfig{
				Provider:       tt.provider,
				Model:          "m",
				Dimensions:     8,
				RateLimit:      60,
				TimeoutSeconds: 10,
			}

			p, err := New(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown provider")
				}
				var cfgErr *errs.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error = %T, want *errs.ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
			if p.Dimensions() != 8 {
				t.Errorf("Dimensions() = %d, want 8", p.Dimensions())
			}
		})
	}
}
