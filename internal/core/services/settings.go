package services

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

//nolint:gosec // G101: key names, not credentials.
const (
	keyVectorProvider   = "vectorstore.provider"
	keyPineconeHost     = "vectorstore.pinecone.host"
	keyPineconeAPIKey   = "vectorstore.pinecone.api_key"
	keyChunkSize        = "chunker.chunk_size"
	keyChunkOverlap     = "chunker.overlap"
	keyTopK             = "rag.top_k"
	keyRewritePolicy    = "rag.rewrite_policy"
	keyHistoryLimit     = "rag.history_limit"
	keyRetryAttempts    = "rag.retry.max_attempts"
	keyRetryInitial     = "rag.retry.initial_interval"
	keyRetryMax         = "rag.retry.max_interval"
	keyTimeoutFetch     = "rag.timeouts.fetch"
	keyTimeoutEmbed     = "rag.timeouts.embed"
	keyTimeoutVector    = "rag.timeouts.vector"
	keyTimeoutGenerate  = "rag.timeouts.generate"
	keyTimeoutIngest    = "rag.timeouts.ingest"
	keyRateEmbeddingRPS = "ratelimit.embedding_rps"
	keyRateLLMRPS       = "ratelimit.llm_rps"

	envEmbeddingAPIKey = "DOCCHAT_EMBEDDING_API_KEY"
	envLLMAPIKey       = "DOCCHAT_LLM_API_KEY"
	envPineconeAPIKey  = "DOCCHAT_PINECONE_API_KEY"

	defaultOllamaBaseURL = "http://localhost:11434"
)

// providerRole binds one of the two ProviderSettings in AppSettings to its
// config section, its API key variable and the providers that can fill it.
type providerRole struct {
	section      string
	env          string
	capability   string
	providers    func() []domain.AIProvider
	defaultModel func(domain.AIProvider) string
	settings     func(*domain.AppSettings) *domain.ProviderSettings
}

var (
	embeddingRole = providerRole{
		section:      "embedding",
		env:          envEmbeddingAPIKey,
		capability:   "embeddings",
		providers:    domain.AllEmbeddingProviders,
		defaultModel: domain.AIProvider.DefaultEmbeddingModel,
		settings:     func(a *domain.AppSettings) *domain.ProviderSettings { return &a.Embedding },
	}
	llmRole = providerRole{
		section:      "llm",
		env:          envLLMAPIKey,
		capability:   "text generation",
		providers:    domain.AllLLMProviders,
		defaultModel: domain.AIProvider.DefaultLLMModel,
		settings:     func(a *domain.AppSettings) *domain.ProviderSettings { return &a.LLM },
	}
)

func (r providerRole) key(field string) string {
	return r.section + "." + field
}

var keyLLMAPIKey = llmRole.key("api_key")

// SettingsService reads and writes AppSettings through a ConfigStore.
// Missing or invalid values fall back to domain.DefaultAppSettings, and
// API keys in the environment win over stored ones.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService returns a service over configStore. aiValidator may
// be nil, which turns the provider checks into no-ops.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	r := configReader{store: s.configStore}

	settings := &domain.AppSettings{
		Embedding: r.provider(embeddingRole),
		LLM:       r.provider(llmRole),
		VectorStore: domain.VectorStoreSettings{
			Provider: enum(r, keyVectorProvider, d.VectorStore.Provider),
			Host:     s.configStore.GetString(keyPineconeHost),
			APIKey:   r.secret(keyPineconeAPIKey, envPineconeAPIKey),
		},
		Chunker: domain.ChunkSettings{
			Size:    r.positive(keyChunkSize, d.Chunker.Size),
			Overlap: r.nonNegative(keyChunkOverlap, d.Chunker.Overlap),
		},
		RAG: domain.RAGSettings{
			TopK:          r.positive(keyTopK, d.RAG.TopK),
			RewritePolicy: enum(r, keyRewritePolicy, d.RAG.RewritePolicy),
			HistoryLimit:  r.nonNegative(keyHistoryLimit, d.RAG.HistoryLimit),
			Retry: domain.RetrySettings{
				MaxAttempts:     r.positive(keyRetryAttempts, d.RAG.Retry.MaxAttempts),
				InitialInterval: r.duration(keyRetryInitial, d.RAG.Retry.InitialInterval),
				MaxInterval:     r.duration(keyRetryMax, d.RAG.Retry.MaxInterval),
			},
			Timeouts: domain.TimeoutSettings{
				Fetch:    r.duration(keyTimeoutFetch, d.RAG.Timeouts.Fetch),
				Embed:    r.duration(keyTimeoutEmbed, d.RAG.Timeouts.Embed),
				Vector:   r.duration(keyTimeoutVector, d.RAG.Timeouts.Vector),
				Generate: r.duration(keyTimeoutGenerate, d.RAG.Timeouts.Generate),
				Ingest:   r.duration(keyTimeoutIngest, d.RAG.Timeouts.Ingest),
			},
		},
		RateLimit: domain.RateLimitSettings{
			EmbeddingRPS: r.rate(keyRateEmbeddingRPS, d.RateLimit.EmbeddingRPS),
			LLMRPS:       r.rate(keyRateLLMRPS, d.RateLimit.LLMRPS),
		},
	}

	// Overlap must stay below the chunk size or the splitter cannot advance.
	if c := &settings.Chunker; c.Overlap >= c.Size {
		c.Overlap = d.Chunker.Overlap
		if c.Overlap >= c.Size {
			c.Overlap = 0
		}
	}
	return settings, nil
}

// Save writes every setting. API keys are written only when they differ
// from the environment, so keys supplied that way never reach disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyVectorProvider:   string(settings.VectorStore.Provider),
		keyPineconeHost:     settings.VectorStore.Host,
		keyChunkSize:        settings.Chunker.Size,
		keyChunkOverlap:     settings.Chunker.Overlap,
		keyTopK:             settings.RAG.TopK,
		keyRewritePolicy:    string(settings.RAG.RewritePolicy),
		keyHistoryLimit:     settings.RAG.HistoryLimit,
		keyRetryAttempts:    settings.RAG.Retry.MaxAttempts,
		keyRetryInitial:     settings.RAG.Retry.InitialInterval.String(),
		keyRetryMax:         settings.RAG.Retry.MaxInterval.String(),
		keyTimeoutFetch:     settings.RAG.Timeouts.Fetch.String(),
		keyTimeoutEmbed:     settings.RAG.Timeouts.Embed.String(),
		keyTimeoutVector:    settings.RAG.Timeouts.Vector.String(),
		keyTimeoutGenerate:  settings.RAG.Timeouts.Generate.String(),
		keyTimeoutIngest:    settings.RAG.Timeouts.Ingest.String(),
		keyRateEmbeddingRPS: settings.RateLimit.EmbeddingRPS,
		keyRateLLMRPS:       settings.RateLimit.LLMRPS,
	}
	secrets := map[string]string{
		keyPineconeAPIKey: envPineconeAPIKey,
	}
	for _, role := range []providerRole{embeddingRole, llmRole} {
		p := role.settings(settings)
		values[role.key("provider")] = p.Provider.String()
		values[role.key("model")] = p.Model
		values[role.key("base_url")] = p.BaseURL
		secrets[role.key("api_key")] = role.env
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := s.configStore.Set(k, values[k]); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}

	apiKeys := map[string]string{
		embeddingRole.key("api_key"): settings.Embedding.APIKey,
		llmRole.key("api_key"):       settings.LLM.APIKey,
		keyPineconeAPIKey:            settings.VectorStore.APIKey,
	}
	for k, value := range apiKeys {
		if value == "" || value == os.Getenv(secrets[k]) {
			continue
		}
		if err := s.configStore.Set(k, value); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return nil
}

func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	return s.setProvider(embeddingRole, provider, model, apiKey)
}

func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	return s.setProvider(llmRole, provider, model, apiKey)
}

// setProvider fills an empty model with the provider's default and keeps
// a custom base URL only for local providers.
func (s *SettingsService) setProvider(role providerRole, provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown %s provider %q", domain.ErrInvalidInput, role.section, provider)
	}
	if !slices.Contains(role.providers(), provider) {
		return fmt.Errorf("%w: provider %s does not support %s", domain.ErrInvalidInput, provider, role.capability)
	}
	if provider.RequiresAPIKey() && apiKey == "" && os.Getenv(role.env) == "" {
		return fmt.Errorf("%w: API key required for %s (or set %s)", domain.ErrInvalidInput, provider, role.env)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	p := role.settings(settings)
	baseURL := ""
	if provider.IsLocal() {
		baseURL = p.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
	}
	if model == "" {
		model = role.defaultModel(provider)
	}
	*p = domain.ProviderSettings{
		Provider: provider,
		Model:    model,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	}

	return s.Save(settings)
}

// SetVectorStore requires a host and a key (stored or in the environment)
// for Pinecone.
func (s *SettingsService) SetVectorStore(provider domain.VectorStoreProvider, host, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidInput, provider)
	}
	if provider == domain.VectorStorePinecone {
		if host == "" {
			return fmt.Errorf("%w: index host required for pinecone", domain.ErrInvalidInput)
		}
		if apiKey == "" && os.Getenv(envPineconeAPIKey) == "" {
			return fmt.Errorf("%w: API key required for pinecone (or set %s)", domain.ErrInvalidInput, envPineconeAPIKey)
		}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.VectorStore = domain.VectorStoreSettings{Provider: provider, Host: host, APIKey: apiKey}
	return s.Save(settings)
}

func (s *SettingsService) SetRewritePolicy(policy domain.RewritePolicy) error {
	if !policy.IsValid() {
		return fmt.Errorf("%w: unknown rewrite policy %q", domain.ErrInvalidInput, policy)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.RAG.RewritePolicy = policy
	return s.Save(settings)
}

// Validate checks that the settings are complete enough to answer
// questions. It does not contact any provider.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch vs := settings.VectorStore; {
	case !settings.Embedding.IsConfigured():
		return fmt.Errorf("%w: run 'docchat settings embedding'", domain.ErrEmbeddingUnavailable)
	case !settings.LLM.IsConfigured():
		return fmt.Errorf("%w: run 'docchat settings llm'", domain.ErrLLMUnavailable)
	case vs.Provider == domain.VectorStorePinecone && (vs.Host == "" || vs.APIKey == ""):
		return fmt.Errorf("%w: pinecone requires host and api key", domain.ErrInvalidInput)
	}
	return nil
}

func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig probes the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	return s.probe(func(v driven.AIConfigValidator, a *domain.AppSettings) error {
		return v.ValidateEmbedding(&a.Embedding)
	})
}

// ValidateLLMConfig probes the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	return s.probe(func(v driven.AIConfigValidator, a *domain.AppSettings) error {
		return v.ValidateLLM(&a.LLM)
	})
}

func (s *SettingsService) probe(check func(driven.AIConfigValidator, *domain.AppSettings) error) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return check(s.aiValidator, settings)
}

// configReader reads typed values, returning the default for anything
// missing or out of range.
type configReader struct {
	store driven.ConfigStore
}

func (r configReader) provider(role providerRole) domain.ProviderSettings {
	return domain.ProviderSettings{
		Provider: enum(r, role.key("provider"), domain.AIProvider("")),
		Model:    r.store.GetString(role.key("model")),
		BaseURL:  r.store.GetString(role.key("base_url")),
		APIKey:   r.secret(role.key("api_key"), role.env),
	}
}

func (r configReader) secret(key, env string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return r.store.GetString(key)
}

func (r configReader) positive(key string, def int) int {
	if v := r.store.GetInt(key); v > 0 {
		return v
	}
	return def
}

// nonNegative accepts an explicit zero.
func (r configReader) nonNegative(key string, def int) int {
	if _, ok := r.store.Get(key); !ok {
		return def
	}
	if v := r.store.GetInt(key); v >= 0 {
		return v
	}
	return def
}

func (r configReader) rate(key string, def float64) float64 {
	if _, ok := r.store.Get(key); !ok {
		return def
	}
	if v := r.store.GetFloat(key); v >= 0 {
		return v
	}
	return def
}

func (r configReader) duration(key string, def time.Duration) time.Duration {
	if v := r.store.GetDuration(key); v > 0 {
		return v
	}
	return def
}

type validated interface {
	~string
	IsValid() bool
}

// enum parses a string-backed setting, rejecting unknown values.
func enum[T validated](r configReader, key string, def T) T {
	if v := T(r.store.GetString(key)); v.IsValid() {
		return v
	}
	return def
}
