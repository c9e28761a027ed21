package content

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Router implements the interface.
var _ driven.ContentSource = (*Router)(nil)

// Router dispatches a reference to the source registered for its scheme.
// References without a scheme are local paths.
type Router struct {
	sources map[string]driven.ContentSource
}

// NewRouter creates a router for file paths and HTTP(S) URLs.
func NewRouter(file, web driven.ContentSource) *Router {
	r := &Router{sources: make(map[string]driven.ContentSource)}
	r.Register("", file)
	r.Register("file", file)
	r.Register("http", web)
	r.Register("https", web)
	return r
}

// Register sets the source for a scheme. A nil source removes it.
func (r *Router) Register(scheme string, source driven.ContentSource) {
	scheme = strings.ToLower(scheme)
	if source == nil {
		delete(r.sources, scheme)
		return
	}
	r.sources[scheme] = source
}

// Fetch routes ref by scheme.
func (r *Router) Fetch(ctx context.Context, ref string) (*domain.RawContent, error) {
	scheme := Scheme(ref)
	source, ok := r.sources[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported reference scheme %q", domain.ErrInvalidInput, scheme)
	}
	return source.Fetch(ctx, ref)
}

// Scheme returns the lowercased URL scheme of ref, or "" for paths.
// Single-letter schemes are treated as Windows drive letters.
func Scheme(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || len(u.Scheme) < 2 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
