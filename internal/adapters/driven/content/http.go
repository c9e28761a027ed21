package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultHTTPTimeout bounds one download when the caller sets no deadline.
const DefaultHTTPTimeout = 60 * time.Second

// Ensure HTTPSource implements the interface.
var _ driven.ContentSource = (*HTTPSource)(nil)

// HTTPSource downloads documents over HTTP(S).
type HTTPSource struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// HTTPConfig holds configuration for the HTTP source.
type HTTPConfig struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

// NewHTTPSource creates an HTTP source.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "docchat"
	}
	return &HTTPSource{client: client, maxBytes: maxBytes, userAgent: userAgent}
}

// Fetch downloads ref. Client errors other than 408 and 429 are not retried.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) (*domain.RawContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ref, resp.StatusCode)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, ref, s.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, ref, s.maxBytes)
	}

	return &domain.RawContent{
		Ref:      ref,
		MIMEType: resp.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// statusError classifies a non-200 response.
func statusError(ref string, status int) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%w: %s returned HTTP %d", domain.ErrNotFound, ref, status)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return fmt.Errorf("%s returned HTTP %d", ref, status)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %s returned HTTP %d", domain.ErrInvalidInput, ref, status)
	default:
		return fmt.Errorf("%s returned HTTP %d", ref, status)
	}
}
