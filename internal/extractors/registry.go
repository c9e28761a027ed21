package extractors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// MIME types recognised by sniffing.
const (
	mimeOctetStream = "application/octet-stream"
	mimePDF         = "application/pdf"
	mimeZip         = "application/zip"
	mimeDOCX        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePlainText   = "text/plain"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches raw content to the best matching extractor.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor, keeping the list ordered by priority.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, extractor)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be extracted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Extract parses raw content with the best matching extractor.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawContent) ([]domain.Page, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := DetectMIMEType(raw)
	extractor := r.find(mimeType)
	if extractor == nil {
		return nil, fmt.Errorf("%w: no extractor for %s", domain.ErrUnsupportedFormat, mimeType)
	}
	logger.Debug("Extracting %s with %T", mimeType, extractor)

	pages, err := extractor.Extract(ctx, raw)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUnsupportedFormat, err)
	}
	return pages, nil
}

// find returns the highest-priority extractor for mimeType.
// Unknown text/* types fall back to the plain text extractor.
func (r *Registry) find(mimeType string) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.lookup(mimeType); e != nil {
		return e
	}
	if strings.HasPrefix(mimeType, "text/") {
		return r.lookup(mimePlainText)
	}
	return nil
}

func (r *Registry) lookup(mimeType string) driven.Extractor {
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			if t == mimeType {
				return e
			}
		}
	}
	return nil
}

// DetectMIMEType returns the declared MIME type without parameters, or a
// sniffed type when none (or only a generic one) was declared.
func DetectMIMEType(raw *domain.RawContent) string {
	declared := baseType(raw.MIMEType)
	if declared != "" && declared != mimeOctetStream {
		return declared
	}

	switch {
	case bytes.HasPrefix(raw.Data, []byte("%PDF-")):
		return mimePDF
	case bytes.HasPrefix(raw.Data, []byte("PK\x03\x04")):
		return mimeDOCX
	}

	sniffed := baseType(http.DetectContentType(raw.Data))
	if sniffed == mimeZip {
		return mimeDOCX
	}
	return sniffed
}

// baseType strips parameters and lowercases a MIME type.
func baseType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if t, _, err := mime.ParseMediaType(mimeType); err == nil {
		return t
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
