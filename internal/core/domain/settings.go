package domain

import "time"

// VectorStoreProvider selects where document namespaces live.
type VectorStoreProvider string

const (
	VectorStoreSQLite   VectorStoreProvider = "sqlite"   // local metadata database
	VectorStoreMemory   VectorStoreProvider = "memory"   // lost on exit
	VectorStorePinecone VectorStoreProvider = "pinecone" // hosted index, one namespace per document
)

func (p VectorStoreProvider) IsValid() bool {
	switch p {
	case VectorStoreSQLite, VectorStoreMemory, VectorStorePinecone:
		return true
	default:
		return false
	}
}

// VectorStoreSettings configures the namespace store. Host and APIKey
// are only read for Pinecone.
type VectorStoreSettings struct {
	Provider VectorStoreProvider
	Host     string
	APIKey   string
}

// ChunkSettings configures text splitting.
type ChunkSettings struct {
	// Size is the target chunk size in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// RewritePolicy decides when a follow-up question is rewritten into a
// standalone search query.
type RewritePolicy string

const (
	// RewriteAlways rewrites every question, including the first one.
	RewriteAlways RewritePolicy = "always"

	// RewriteWhenHistory rewrites only when prior turns exist.
	RewriteWhenHistory RewritePolicy = "when_history"
)

func (p RewritePolicy) IsValid() bool {
	return p == RewriteAlways || p == RewriteWhenHistory
}

// RetrySettings configures retries of provider calls.
type RetrySettings struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
}

// TimeoutSettings holds per-call deadlines for external collaborators.
type TimeoutSettings struct {
	Fetch    time.Duration
	Embed    time.Duration
	Vector   time.Duration
	Generate time.Duration

	// Ingest bounds a whole ingestion run, which outlives the request
	// that started it.
	Ingest time.Duration
}

// RAGSettings holds retrieval and answer synthesis configuration.
type RAGSettings struct {
	// TopK is the number of passages retrieved per question.
	TopK int

	// RewritePolicy controls the query rewrite step.
	RewritePolicy RewritePolicy

	// HistoryLimit bounds the chat turns fed into prompts.
	// Zero uses the whole conversation.
	HistoryLimit int

	// Retry configures provider retries.
	Retry RetrySettings

	// Timeouts configures per-call deadlines.
	Timeouts TimeoutSettings
}

// RateLimitSettings holds client-side request rate limits.
// Zero disables limiting for that provider.
type RateLimitSettings struct {
	EmbeddingRPS float64
	LLMRPS       float64
}

// AppSettings is the full persisted configuration.
type AppSettings struct {
	// Embedding selects the model that embeds chunks and queries.
	Embedding ProviderSettings

	// LLM selects the model that rewrites questions and writes answers.
	LLM ProviderSettings

	// VectorStore holds vector namespace store settings.
	VectorStore VectorStoreSettings

	// Chunker holds text splitting settings.
	Chunker ChunkSettings

	// RAG holds pipeline settings.
	RAG RAGSettings

	// RateLimit holds provider rate limits.
	RateLimit RateLimitSettings
}

// DefaultTopK is how many passages a question retrieves.
const DefaultTopK = 5

// DefaultAppSettings leaves both AI providers unset, so nothing runs
// until the user picks them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		VectorStore: VectorStoreSettings{
			Provider: VectorStoreSQLite,
		},
		Chunker: ChunkSettings{
			Size:    1000,
			Overlap: 200,
		},
		RAG: RAGSettings{
			TopK:          DefaultTopK,
			RewritePolicy: RewriteAlways,
			Retry: RetrySettings{
				MaxAttempts:     3,
				InitialInterval: 250 * time.Millisecond,
				MaxInterval:     4 * time.Second,
			},
			Timeouts: TimeoutSettings{
				Fetch:    30 * time.Second,
				Embed:    60 * time.Second,
				Vector:   15 * time.Second,
				Generate: 120 * time.Second,
				Ingest:   10 * time.Minute,
			},
		},
	}
}
