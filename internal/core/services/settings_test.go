package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.VectorStore.Provider, settings.VectorStore.Provider)
	assert.Equal(t, defaults.Chunker, settings.Chunker)
	assert.Equal(t, defaults.RAG, settings.RAG)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "cohere")
	_ = store.Set("embedding.model", "embed-english-v3.0")
	_ = store.Set("rag.top_k", 8)
	_ = store.Set("rag.rewrite_policy", "when_history")
	_ = store.Set("rag.timeouts.generate", "45s")
	_ = store.Set("rag.timeouts.ingest", "2m")
	_ = store.Set("chunker.overlap", 0)
	_ = store.Set("ratelimit.llm_rps", 2.5)

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderCohere, settings.Embedding.Provider)
	assert.Equal(t, "embed-english-v3.0", settings.Embedding.Model)
	assert.Equal(t, 8, settings.RAG.TopK)
	assert.Equal(t, domain.RewriteWhenHistory, settings.RAG.RewritePolicy)
	assert.Equal(t, 45*time.Second, settings.RAG.Timeouts.Generate)
	assert.Equal(t, 2*time.Minute, settings.RAG.Timeouts.Ingest)
	assert.Equal(t, 0, settings.Chunker.Overlap)
	assert.InDelta(t, 2.5, settings.RateLimit.LLMRPS, 1e-9)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("vectorstore.provider", "qdrant")
	_ = store.Set("rag.rewrite_policy", "sometimes")
	_ = store.Set("rag.timeouts.fetch", "soon")
	_ = store.Set("rag.top_k", -3)

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorStore.Provider, settings.VectorStore.Provider)
	assert.Equal(t, defaults.RAG.RewritePolicy, settings.RAG.RewritePolicy)
	assert.Equal(t, defaults.RAG.Timeouts.Fetch, settings.RAG.Timeouts.Fetch)
	assert.Equal(t, defaults.RAG.TopK, settings.RAG.TopK)
}

func TestSettingsService_Get_OverlapNotLargerThanSize(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("chunker.chunk_size", 100)
	_ = store.Set("chunker.overlap", 150)

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, 100, settings.Chunker.Size)
	assert.Less(t, settings.Chunker.Overlap, settings.Chunker.Size)
}

func TestSettingsService_Get_EnvironmentOverridesAPIKeys(t *testing.T) {
	t.Setenv(envEmbeddingAPIKey, "env-embed")
	t.Setenv(envLLMAPIKey, "env-llm")
	t.Setenv(envPineconeAPIKey, "env-pc")

	store := memory.NewConfigStore()
	_ = store.Set("embedding.api_key", "file-embed")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, "env-embed", settings.Embedding.APIKey)
	assert.Equal(t, "env-llm", settings.LLM.APIKey)
	assert.Equal(t, "env-pc", settings.VectorStore.APIKey)
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.ProviderSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test-key",
	}
	settings.LLM = domain.ProviderSettings{
		Provider: domain.AIProviderGemini,
		Model:    "gemini-2.0-flash",
		APIKey:   "gm-test",
	}
	settings.RAG.Retry.MaxAttempts = 5

	err := service.Save(&settings)
	require.NoError(t, err)

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.Embedding, retrieved.Embedding)
	assert.Equal(t, settings.LLM, retrieved.LLM)
	assert.Equal(t, settings.RAG, retrieved.RAG)
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKeys(t *testing.T) {
	t.Setenv(envLLMAPIKey, "env-llm")
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)
	require.NoError(t, service.Save(settings))

	_, exists := store.Get(keyLLMAPIKey)
	assert.False(t, exists)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name          string
		provider      domain.AIProvider
		model         string
		apiKey        string
		expectedModel string
		expectedURL   string
	}{
		{"cohere default model", domain.AIProviderCohere, "", "co-key", "embed-v4.0", ""},
		{"openai explicit model", domain.AIProviderOpenAI, "text-embedding-3-large", "sk", "text-embedding-3-large", ""},
		{"ollama local", domain.AIProviderOllama, "", "", "nomic-embed-text", defaultOllamaBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.expectedModel, settings.Embedding.Model)
			assert.Equal(t, tt.expectedURL, settings.Embedding.BaseURL)
			assert.True(t, settings.Embedding.IsConfigured())
		})
	}
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetEmbeddingProvider(domain.AIProvider("nope"), "", ""))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderCohere, "", ""))

	err := service.SetEmbeddingProvider(domain.AIProviderGemini, "", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderGemini, "", "gm-key"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderGemini, settings.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)
}

func TestSettingsService_SetLLMProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetLLMProvider(domain.AIProvider("nope"), "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderCohere, "", "key"))
}

func TestSettingsService_SetVectorStore(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetVectorStore(domain.VectorStoreProvider("x"), "", ""))
	assert.Error(t, service.SetVectorStore(domain.VectorStorePinecone, "", "key"))
	assert.Error(t, service.SetVectorStore(domain.VectorStorePinecone, "https://idx.pinecone.io", ""))

	require.NoError(t, service.SetVectorStore(domain.VectorStorePinecone, "https://idx.pinecone.io", "pc"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.VectorStorePinecone, settings.VectorStore.Provider)
	assert.Equal(t, "https://idx.pinecone.io", settings.VectorStore.Host)
	assert.Equal(t, "pc", settings.VectorStore.APIKey)
}

func TestSettingsService_SetRewritePolicy(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetRewritePolicy("never"))
	require.NoError(t, service.SetRewritePolicy(domain.RewriteWhenHistory))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.RewriteWhenHistory, settings.RAG.RewritePolicy)
}

func TestSettingsService_Validate(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	err := service.Validate()
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))
	err = service.Validate()
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
	assert.NoError(t, service.Validate())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

type mockAIValidator struct {
	embedErr error
	llmErr   error
	calls    int
}

func (m *mockAIValidator) ValidateEmbedding(*domain.ProviderSettings) error {
	m.calls++
	return m.embedErr
}

func (m *mockAIValidator) ValidateLLM(*domain.ProviderSettings) error {
	m.calls++
	return m.llmErr
}

func TestSettingsService_ValidateConfigs(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates", func(t *testing.T) {
		validator := &mockAIValidator{embedErr: errors.New("unreachable")}
		service := NewSettingsService(memory.NewConfigStore(), validator)

		assert.EqualError(t, service.ValidateEmbeddingConfig(), "unreachable")
		assert.NoError(t, service.ValidateLLMConfig())
		assert.Equal(t, 2, validator.calls)
	})
}

func TestSettingsService_SetProvider_RejectsWithInvalidInput(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	err := service.SetLLMProvider(domain.AIProviderCohere, "", "key")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "does not support text generation")
}
