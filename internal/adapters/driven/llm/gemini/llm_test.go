package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func newLLM(t *testing.T, handler http.HandlerFunc) *LLMService {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc, err := NewLLMService(Config{APIKey: "g-key", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)

	svc, err := NewLLMService(Config{APIKey: "k", Model: "models/gemini-2.0-pro"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-pro", svc.ModelName())
}

func TestGenerate(t *testing.T) {
	svc := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []content{{Role: "user", Parts: []part{{Text: "the prompt"}}}}, req.Contents)
		if assert.NotNil(t, req.GenerationConfig) && assert.NotNil(t, req.GenerationConfig.Temperature) {
			assert.InDelta(t, 0.7, *req.GenerationConfig.Temperature, 1e-9)
			assert.Equal(t, 300, req.GenerationConfig.MaxOutputTokens)
		}

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"part one "},{"text":"part two"}]}}]}`))
	})

	out, err := svc.Generate(context.Background(), "the prompt", driven.GenerateOptions{MaxTokens: 300, Temperature: 0.7})

	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
}

func TestGenerate_NoConfigWhenDefaults(t *testing.T) {
	svc := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "generationConfig")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})

	require.NoError(t, err)
}

func TestGenerate_StopSequencesOnly(t *testing.T) {
	svc := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.NotNil(t, req.GenerationConfig) {
			assert.Nil(t, req.GenerationConfig.Temperature)
			assert.Equal(t, []string{"\n"}, req.GenerationConfig.StopSequences)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"one line"}]}}]}`))
	})

	out, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{StopWords: []string{"\n"}})

	require.NoError(t, err)
	assert.Equal(t, "one line", out)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"Resource exhausted"}}`, true},
		{"bad key", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`, false},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, false},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newLLM(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})

			assert.ErrorIs(t, err, domain.ErrGenerationProvider)
			assert.Equal(t, tt.retryable, domain.IsRetryable(err))
		})
	}
}

func TestPing(t *testing.T) {
	svc := newLLM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	assert.Error(t, svc.Ping(context.Background()))
}
