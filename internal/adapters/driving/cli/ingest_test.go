package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestIngestCmd_ReportsRecords(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.rag.ingest = &domain.IngestResult{DocumentID: "doc-1", Records: 17}

	out, err := executeCommand("ingest", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Ingesting doc-1")
	assert.Contains(t, out, "Document doc-1 ingested: 17 records.")
}

func TestIngestCmd_AlreadyIngested(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.rag.ingest = &domain.IngestResult{DocumentID: "doc-1", AlreadyIngested: true}

	out, err := executeCommand("ingest", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 is already ingested.")
}

func TestIngestCmd_PrintsProgress(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	progressInterval = 5 * time.Millisecond
	svc.rag.delay = 60 * time.Millisecond

	out, err := executeCommand("ingest", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Ingesting doc-1.")
}

func TestIngestCmd_EmbeddingUnavailableHint(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.rag.err = domain.ErrEmbeddingUnavailable

	_, err := executeCommand("ingest", "doc-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "docchat settings embedding")
}

func TestIngestCmd_Failure(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.rag.err = domain.ErrUnsupportedFormat

	_, err := executeCommand("ingest", "doc-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")
	assert.NotContains(t, err.Error(), "settings embedding")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	ragService = nil

	_, err := executeCommand("ingest", "doc-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAG service not configured")
}
