package driven

import "time"

// ConfigStore holds flat, dot-separated configuration keys such as
// "rag.top_k" or "vectorstore.pinecone.host".
//
// Typed getters return the zero value when a key is missing or holds
// another type; SettingsService substitutes its defaults in that case.
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	GetString(key string) string

	// GetInt accepts any integer type and truncates floats.
	GetInt(key string) int

	// GetFloat accepts floats and integers.
	GetFloat(key string) float64

	// GetDuration parses a string value such as "250ms" or "2m".
	GetDuration(key string) time.Duration

	// Set stores a value. Persistent stores write it immediately.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Load re-reads configuration from storage.
	Load() error

	// Path returns where the configuration lives.
	Path() string
}
