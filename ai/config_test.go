package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.NotEmpty(t, cfg.ChatModel)
	assert.NotEmpty(t, cfg.EmbeddingModel)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("no options yields defaults", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("applies options in order", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("https://api.perplexity.ai"),
			WithChatModel("sonar-pro"),
			WithEmbeddingModel("text-embedding-3-small"),
			WithAPIKey("pplx-test"),
			WithTemperature(0.0),
			WithRequestsPerMinute(30),
		)
		assert.Equal(t, "https://api.perplexity.ai", cfg.ChatHost)
		assert.Equal(t, "https://api.perplexity.ai", cfg.EmbeddingHost)
		assert.Equal(t, "sonar-pro", cfg.ChatModel)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "pplx-test", cfg.APIKey)
		assert.Equal(t, 0.0, cfg.Temperature)
		assert.Equal(t, 30, cfg.RequestsPerMinute)
	})

	t.Run("separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithChatHost("http://chat:9100/v1"),
			WithEmbeddingHost("http://embed:11434/v1"),
		)
		assert.Equal(t, "http://chat:9100/v1", cfg.ChatHost)
		assert.Equal(t, "http://embed:11434/v1", cfg.EmbeddingHost)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"bare host", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.ChatHost)
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}

	t.Run("empty api key becomes none", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey(""))
		cfg.Normalize()
		assert.Equal(t, "none", cfg.APIKey)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, NewConfig().Validate())
	})

	t.Run("missing chat host", func(t *testing.T) {
		cfg := NewConfig(WithChatHost(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing chat model", func(t *testing.T) {
		cfg := NewConfig(WithChatModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("temperature out of range", func(t *testing.T) {
		assert.Error(t, NewConfig(WithTemperature(2.5)).Validate())
		assert.Error(t, NewConfig(WithTemperature(-0.1)).Validate())
	})

	t.Run("negative rate limit", func(t *testing.T) {
		assert.Error(t, NewConfig(WithRequestsPerMinute(-1)).Validate())
	})

	t.Run("validate normalizes first", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})
}
