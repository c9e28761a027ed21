package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

const (
	// ConfigFileName is the settings file inside the home directory.
	ConfigFileName = "config.toml"

	// EnvHome overrides the home directory (default ~/.docchat).
	EnvHome = "DOCCHAT_HOME"
)

// HomeDir is $DOCCHAT_HOME, or ~/.docchat when unset.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".docchat"), nil
}

// ConfigStore keeps settings in a TOML file. Keys are dotted paths
// ("rag.top_k") in memory and nested tables on disk. Every Set rewrites
// the file.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// NewConfigStore loads dir/config.toml, creating dir if needed. An empty
// dir means HomeDir.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		var err error
		if dir, err = HomeDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	s := &ConfigStore{path: filepath.Join(dir, ConfigFileName)}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return s, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt reads TOML integers, which decode as int64, and ints set in
// this process.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func (s *ConfigStore) GetDuration(key string) time.Duration {
	d, _ := time.ParseDuration(s.GetString(key)) //nolint:errcheck // zero on bad input
	return d
}

// Set stores value and writes the file. When the write fails the old
// value is restored.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	if err := s.write(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write must be called with mu held.
func (s *ConfigStore) write() error {
	raw, err := toml.Marshal(nestMap(s.data))
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, raw, 0o600)
}

// Load replaces the in-memory settings with the file. A missing file
// leaves an empty configuration.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = map[string]any{}
		return nil
	}
	if err != nil {
		return err
	}

	var tables map[string]any
	if err := toml.Unmarshal(raw, &tables); err != nil {
		return err
	}
	s.data = flattenMap(tables, "")
	return nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

// flattenMap turns {"a": {"b": 1}} into {"a.b": 1}.
func flattenMap(tables map[string]any, prefix string) map[string]any {
	flat := map[string]any{}
	for k, v := range tables {
		if prefix != "" {
			k = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			maps.Copy(flat, flattenMap(child, k))
			continue
		}
		flat[k] = v
	}
	return flat
}

// nestMap inverts flattenMap. When a key is both a value and a table
// prefix ("a" and "a.b"), the value keeps the name and the longer key is
// written quoted inside the deepest table still free.
func nestMap(flat map[string]any) map[string]any {
	keys := slices.Collect(maps.Keys(flat))
	slices.SortFunc(keys, func(a, b string) int {
		if d := strings.Count(a, ".") - strings.Count(b, "."); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	root := map[string]any{}
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for len(parts) > 1 {
			existing, taken := table[parts[0]]
			if !taken {
				existing = map[string]any{}
				table[parts[0]] = existing
			}
			child, isTable := existing.(map[string]any)
			if !isTable {
				break
			}
			table, parts = child, parts[1:]
		}
		table[strings.Join(parts, ".")] = flat[key]
	}
	return root
}
