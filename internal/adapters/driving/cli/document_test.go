package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commands := documentCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"add", "list", "show", "remove"}, commandNames)
}

// Document Add Tests

func TestDocumentAddCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "add")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentAddCmd_RegistersForCurrentUser(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "add", "/tmp/report.pdf", "--mime", "application/pdf")

	require.NoError(t, err)
	assert.Contains(t, out, "Added document doc-new")
	assert.Contains(t, out, "Title: report.pdf")
	assert.Contains(t, out, "Type:  application/pdf")
	assert.Equal(t, "alice", svc.docs.gotOwner)
	assert.Equal(t, []string{"/tmp/report.pdf"}, svc.docs.added)
	assert.Zero(t, svc.rag.calls)
}

func TestDocumentAddCmd_UserFlag(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "add", "/tmp/report.pdf", "--user", "carol")

	require.NoError(t, err)
	assert.Equal(t, "carol", svc.docs.gotOwner)
}

func TestDocumentAddCmd_IngestFlag(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "add", "/tmp/report.pdf", "--title", "Report", "--ingest")

	require.NoError(t, err)
	assert.Contains(t, out, "Title: Report")
	assert.Contains(t, out, "Document doc-new ingested: 3 records.")
	assert.Equal(t, 1, svc.rag.calls)
}

func TestDocumentAddCmd_ServiceError(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.docs.err = domain.ErrInvalidInput

	_, err := executeCommand("document", "add", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add document")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Document List Tests

func TestDocumentListCmd_ListsOwnDocuments(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "list")

	require.NoError(t, err)
	assert.Equal(t, "alice", svc.docs.gotOwner)
	assert.Contains(t, out, "doc-1  Test Document 1")
	assert.Contains(t, out, "Total: 2 documents")
	assert.NotContains(t, out, "Owner:")
}

func TestDocumentListCmd_AllFlag(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "list", "--all")

	require.NoError(t, err)
	assert.Empty(t, svc.docs.gotOwner)
	assert.Contains(t, out, "Owner: bob")
}

func TestDocumentListCmd_EmptyList(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.docs.documents = nil

	out, err := executeCommand("document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found")
}

func TestDocumentListCmd_ServiceError(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.docs.err = errors.New("database locked")

	_, err := executeCommand("document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list documents")
}

// Document Show Tests

func TestDocumentShowCmd_PrintsNamespace(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "show", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "State:    ingested")
	assert.Contains(t, out, "Records:     42")
	assert.Contains(t, out, "Dimensions:  768")
	assert.Contains(t, out, "Completed:   2024-05-01 12:00:00")
}

func TestDocumentShowCmd_NotIngested(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.docs.details.State = domain.IngestionStateNotIngested
	svc.docs.details.Namespace = nil

	out, err := executeCommand("document", "show", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "State:    not_ingested")
	assert.NotContains(t, out, "Namespace:")
}

// Document Remove Tests

func TestDocumentRemoveCmd_Removes(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "remove", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 removed.")
	assert.Equal(t, []string{"doc-1"}, svc.docs.removed)
}

func TestDocumentRemoveCmd_NotFound(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.docs.err = domain.ErrNotFound

	_, err := executeCommand("document", "remove", "missing")

	require.Error(t, err)
	assert.Equal(t, "document missing not found", err.Error())
}

// Service Not Configured Tests

func TestDocumentCmds_ServiceNotConfigured(t *testing.T) {
	tests := [][]string{
		{"document", "add", "/tmp/a.txt"},
		{"document", "list"},
		{"document", "show", "doc-1"},
		{"document", "remove", "doc-1"},
	}

	for _, args := range tests {
		t.Run(args[1], func(t *testing.T) {
			_, cleanup := setupTestServices()
			defer cleanup()
			documentService = nil

			_, err := executeCommand(args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "document service not configured")
		})
	}
}
