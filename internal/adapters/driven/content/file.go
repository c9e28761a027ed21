package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultMaxBytes caps the size of a fetched document.
const DefaultMaxBytes = 100 << 20

// Ensure FileSource implements the interface.
var _ driven.ContentSource = (*FileSource)(nil)

// FileSource reads documents from the local filesystem.
type FileSource struct {
	maxBytes int64
}

// NewFileSource creates a filesystem source.
// A non-positive maxBytes uses DefaultMaxBytes.
func NewFileSource(maxBytes int64) *FileSource {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &FileSource{maxBytes: maxBytes}
}

// Fetch reads the file named by a path or file:// URL.
// Missing files fail with domain.ErrNotFound, which is not retried.
func (s *FileSource) Fetch(ctx context.Context, ref string) (*domain.RawContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := LocalPath(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > s.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, path, s.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &domain.RawContent{
		Ref:      ref,
		MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:     data,
	}, nil
}

// LocalPath converts a file:// URL or bare path to a filesystem path.
func LocalPath(ref string) (string, error) {
	if !strings.HasPrefix(ref, "file://") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("%w: remote file host %q", domain.ErrInvalidInput, u.Host)
	}
	return filepath.FromSlash(u.Path), nil
}
