package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
)

func TestValidateConfig_UnknownType(t *testing.T) {
	err := ValidateConfig(context.Background(), domain.ProviderConfig{
		ID:   "x",
		Type: domain.AIProvider("mystery"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateConfig_MissingCredentials(t *testing.T) {
	err := ValidateConfig(context.Background(), domain.ProviderConfig{
		ID:        "claude",
		Type:      domain.AIProviderAnthropic,
		Anthropic: &domain.AnthropicSettings{},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateConfig_OllamaReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	err := ValidateConfig(context.Background(), ollamaConfig(server.URL))

	assert.NoError(t, err)
}

func TestValidateConfig_OllamaUnreachable(t *testing.T) {
	err := ValidateConfig(context.Background(), ollamaConfig("http://127.0.0.1:1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
