package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or parser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Pipeline Errors.

	// ErrSourceUnavailable indicates the content reference could not be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUnsupportedFormat indicates the fetched content could not be parsed.
	// Not retryable.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmbeddingProvider indicates a transport or quota failure of the embedding provider.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrVectorStore indicates a failure of the vector namespace store.
	ErrVectorStore = errors.New("vector store error")

	// ErrGenerationProvider indicates a failure of the text-generation provider.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrQueryRewriteFailed indicates the rewriter produced no usable query.
	// This is a normal outcome, answered with a fallback message.
	ErrQueryRewriteFailed = errors.New("query rewrite failed")

	// ErrDimensionMismatch indicates the embedding provider and the index
	// disagree on vector size. Fatal misconfiguration, never retried.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// IsRetryable reports whether err may succeed if the call is repeated.
// Structural failures and caller cancellation are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrQueryRewriteFailed),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// IsFatal reports whether err is a structural failure that must be
// surfaced to the caller rather than degraded into an answer.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) || errors.Is(err, ErrUnsupportedFormat)
}

// WrapProviderError tags err with the given kind.
// Deadline expiry is additionally tagged with ErrTimeout.
// Errors that already carry the kind are returned unchanged.
func WrapProviderError(kind, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w: %w", kind, ErrTimeout, err)
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// IsTimeout matches context deadlines and transport timeouts
// (net.Error and url.Error both expose Timeout).
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
