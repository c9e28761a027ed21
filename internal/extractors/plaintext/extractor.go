// Package plaintext extracts text documents that need no parsing.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-java",
		"text/x-c",
		"text/x-shellscript",
		"text/x-sql",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/css",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract returns the whole text as a single page.
// Content that is not valid UTF-8 is rejected as binary.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawContent) ([]domain.Page, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	data := bytes.TrimPrefix(raw.Data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: content is not UTF-8 text", domain.ErrUnsupportedFormat)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return []domain.Page{{Number: 1, Text: text}}, nil
}
