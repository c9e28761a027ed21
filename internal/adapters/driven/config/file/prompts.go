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

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const readmeHeader = `# docchat prompts

Templates used when talking to the configured LLM.

## Files

`

const readmeFooter = `
## Customisation

Edit a file to change the prompt. Changes apply on the next command.
A template with the wrong number of ` + "`%s`" + ` placeholders is ignored and the
built-in default is used instead. Delete a file to restore its default.
`

// PromptStore reads prompt templates from <dir>/<name>.txt. Missing,
// blank or unreadable files fall back to the defaults given to
// NewPromptStore. Nothing touches the disk until the first Load, which
// writes any missing default files and a README.
type PromptStore struct {
	dir      string
	defaults map[string]string

	setup    sync.Once
	setupErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore copies defaults. An empty dir means <HomeDir>/prompts.
func NewPromptStore(dir string, defaults map[string]string) (*PromptStore, error) {
	if dir == "" {
		home, err := HomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, "prompts")
	}
	return &PromptStore{
		dir:      dir,
		defaults: maps.Clone(defaults),
		cache:    map[string]string{},
	}, nil
}

func (s *PromptStore) Load(name string) (string, error) {
	s.setup.Do(func() { s.setupErr = s.writeDefaults() })

	fallback, known := s.defaults[name]
	if s.setupErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.setupErr)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt, err := s.read(name)
	if err != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached prompts so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

func (s *PromptStore) Dir() string {
	return s.dir
}

// Path is the file prompt name is read from.
func (s *PromptStore) Path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// Reset overwrites a prompt file with its built-in default.
func (s *PromptStore) Reset(name string) error {
	content, ok := s.defaults[name]
	if !ok {
		return fmt.Errorf("unknown prompt %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	if err := writeFileAtomic(s.Path(name), []byte(content), 0o600); err != nil {
		return fmt.Errorf("reset prompt %q: %w", name, err)
	}
	s.Reload()
	return nil
}

func (s *PromptStore) read(name string) (string, error) {
	raw, err := os.ReadFile(s.Path(name))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", errors.New("empty file")
	}
	return prompt, nil
}

// writeDefaults creates the directory and any default file or README that
// does not exist yet. Existing files are never touched.
func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	names := slices.Sorted(maps.Keys(s.defaults))
	var readme strings.Builder
	readme.WriteString(readmeHeader)
	for _, name := range names {
		if err := createIfMissing(s.Path(name), s.defaults[name]); err != nil {
			return fmt.Errorf("create default prompt %q: %w", name, err)
		}
		fmt.Fprintf(&readme, "- `%s.txt` (%d `%%s` placeholders)\n",
			name, strings.Count(s.defaults[name], "%s"))
	}
	readme.WriteString(readmeFooter)

	return createIfMissing(filepath.Join(s.dir, "README.md"), readme.String())
}

func createIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = f.WriteString(content)
	return errors.Join(err, f.Close())
}
