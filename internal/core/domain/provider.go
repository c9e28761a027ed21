package domain

// AIProvider identifies a hosted or local model API.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderCohere    AIProvider = "cohere"
	AIProviderGemini    AIProvider = "gemini"
)

// providerSpec describes what a provider offers. An empty default model
// means the provider does not serve that role.
type providerSpec struct {
	name       string
	local      bool
	embedModel string
	llmModel   string
}

// providerCatalog is ordered the way providers are offered to the user.
var providerCatalog = []struct {
	id   AIProvider
	spec providerSpec
}{
	{AIProviderCohere, providerSpec{name: "Cohere", embedModel: "embed-v4.0"}},
	{AIProviderGemini, providerSpec{name: "Google Gemini", llmModel: "gemini-2.0-flash"}},
	{AIProviderOllama, providerSpec{name: "Ollama", local: true, embedModel: "nomic-embed-text", llmModel: "llama3.2"}},
	{AIProviderOpenAI, providerSpec{name: "OpenAI", embedModel: "text-embedding-3-small", llmModel: "gpt-4o-mini"}},
	{AIProviderAnthropic, providerSpec{name: "Anthropic", llmModel: "claude-3-5-sonnet-latest"}},
}

func (p AIProvider) spec() (providerSpec, bool) {
	for _, e := range providerCatalog {
		if e.id == p {
			return e.spec, true
		}
	}
	return providerSpec{}, false
}

func (p AIProvider) IsValid() bool {
	_, ok := p.spec()
	return ok
}

// IsLocal reports whether the provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	s, _ := p.spec()
	return s.local
}

// RequiresAPIKey is true for every known hosted provider.
func (p AIProvider) RequiresAPIKey() bool {
	return p.IsValid() && !p.IsLocal()
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in menus, e.g. "Ollama (local)".
func (p AIProvider) Description() string {
	s, ok := p.spec()
	if !ok {
		return "Unknown"
	}
	if s.local {
		return s.name + " (local)"
	}
	return s.name + " (cloud)"
}

// DefaultEmbeddingModel is empty when p cannot embed.
func (p AIProvider) DefaultEmbeddingModel() string {
	s, _ := p.spec()
	return s.embedModel
}

// DefaultLLMModel is empty when p cannot generate text.
func (p AIProvider) DefaultLLMModel() string {
	s, _ := p.spec()
	return s.llmModel
}

// AllEmbeddingProviders lists providers with an embedding model, in menu order.
func AllEmbeddingProviders() []AIProvider {
	return providersWhere(func(s providerSpec) bool { return s.embedModel != "" })
}

// AllLLMProviders lists providers with a generation model, in menu order.
func AllLLMProviders() []AIProvider {
	return providersWhere(func(s providerSpec) bool { return s.llmModel != "" })
}

func providersWhere(keep func(providerSpec) bool) []AIProvider {
	var out []AIProvider
	for _, e := range providerCatalog {
		if keep(e.spec) {
			out = append(out, e.id)
		}
	}
	return out
}

// ProviderSettings selects and authenticates one provider, for either
// embeddings or generation.
type ProviderSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL overrides the provider's endpoint. Only used for local providers.
	BaseURL string

	// APIKey is empty for local providers.
	APIKey string
}

// IsConfigured reports whether the settings name a known provider and
// carry a key when one is needed.
func (s ProviderSettings) IsConfigured() bool {
	return s.Provider.IsValid() && (!s.Provider.RequiresAPIKey() || s.APIKey != "")
}

var embeddingDimensions = map[string]int{
	"embed-v4.0":               1536,
	"embed-english-v3.0":       1024,
	"embed-multilingual-v3.0":  1024,
	"embed-english-light-v3.0": 384,
	"nomic-embed-text":         768,
	"mxbai-embed-large":        1024,
	"all-minilm":               384,
	"text-embedding-3-small":   1536,
	"text-embedding-3-large":   3072,
	"text-embedding-ada-002":   1536,
}

// EmbeddingDimensions returns the native vector size of a well-known
// embedding model, or zero when the size must be learned from the provider.
func EmbeddingDimensions(model string) int {
	return embeddingDimensions[model]
}
