package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.NamespaceStore = (*namespaceStore)(nil)

// namespaceStore writes records and the namespace marker in one
// transaction. Readers go through the marker, so a namespace whose upsert
// never committed does not exist.
type namespaceStore struct {
	db *sql.DB
}

const markerQuery = `
	SELECT namespace, records, dimensions, fingerprint, completed_at
	FROM namespace_markers WHERE namespace = ?
`

func (s *namespaceStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	_, err := s.marker(ctx, s.db, namespace)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Upsert adds or replaces records by ID and rewrites the marker with the
// namespace's new count and fingerprint. Records whose size differs from
// an already committed namespace are rejected with ErrDimensionMismatch.
func (s *namespaceStore) Upsert(ctx context.Context, namespace string, records []domain.IndexRecord) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no records to upsert", domain.ErrInvalidInput)
	}
	dims, err := similarity.Dimensions(records)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning upsert: %w", domain.ErrVectorStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := s.marker(ctx, tx, namespace)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case existing.Dimensions != dims:
		return fmt.Errorf("%w: namespace has %d dimensions, records have %d",
			domain.ErrDimensionMismatch, existing.Dimensions, dims)
	}

	if err := writeRecords(ctx, tx, namespace, records); err != nil {
		return err
	}

	ids, err := recordIDs(ctx, tx, namespace)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO namespace_markers (namespace, records, dimensions, fingerprint, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			records      = excluded.records,
			dimensions   = excluded.dimensions,
			fingerprint  = excluded.fingerprint,
			completed_at = excluded.completed_at
	`, namespace, len(ids), dims, domain.Fingerprint(ids), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: writing marker: %w", domain.ErrVectorStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing upsert: %w", domain.ErrVectorStore, err)
	}
	return nil
}

func writeRecords(ctx context.Context, tx *sql.Tx, namespace string, records []domain.IndexRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO namespace_records (namespace, id, text, vector, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			text     = excluded.text,
			vector   = excluded.vector,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing record insert: %w", domain.ErrVectorStore, err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, namespace, r.ID, r.Text, encodeVector(r.Vector), string(metadata)); err != nil {
			return fmt.Errorf("%w: writing record %s: %w", domain.ErrVectorStore, r.ID, err)
		}
	}
	return nil
}

// Query scores every record of the namespace in process. An absent
// namespace yields no matches.
func (s *namespaceStore) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
) ([]domain.RetrievalMatch, error) {
	info, err := s.marker(ctx, s.db, namespace)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.RetrievalMatch{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(vector) != info.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace has %d",
			domain.ErrDimensionMismatch, len(vector), info.Dimensions)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, vector, metadata FROM namespace_records WHERE namespace = ?", namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: reading records: %w", domain.ErrVectorStore, err)
	}
	defer rows.Close()

	records := make([]domain.IndexRecord, 0, info.Records)
	for rows.Next() {
		var (
			r        domain.IndexRecord
			blob     []byte
			metadata string
		)
		if err := rows.Scan(&r.ID, &r.Text, &blob, &metadata); err != nil {
			return nil, fmt.Errorf("%w: scanning record: %w", domain.ErrVectorStore, err)
		}
		r.Vector = decodeVector(blob)
		if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading records: %w", domain.ErrVectorStore, err)
	}

	return similarity.TopK(vector, records, topK), nil
}

func (s *namespaceStore) Describe(ctx context.Context, namespace string) (*domain.NamespaceInfo, error) {
	info, err := s.marker(ctx, s.db, namespace)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return info, err
}

// Close is a no-op; the database belongs to Store.
func (s *namespaceStore) Close() error {
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// marker returns sql.ErrNoRows unwrapped; other errors carry ErrVectorStore.
func (s *namespaceStore) marker(ctx context.Context, q querier, namespace string) (*domain.NamespaceInfo, error) {
	var info domain.NamespaceInfo
	err := q.QueryRowContext(ctx, markerQuery, namespace).
		Scan(&info.Namespace, &info.Records, &info.Dimensions, &info.Fingerprint, &info.CompletedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: reading marker of %s: %w", domain.ErrVectorStore, namespace, err)
	}
	return &info, nil
}

// recordIDs lists the namespace's record IDs as bare records for
// domain.Fingerprint.
func recordIDs(ctx context.Context, tx *sql.Tx, namespace string) ([]domain.IndexRecord, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM namespace_records WHERE namespace = ?", namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: listing record ids: %w", domain.ErrVectorStore, err)
	}
	defer rows.Close()

	var ids []domain.IndexRecord
	for rows.Next() {
		var r domain.IndexRecord
		if err := rows.Scan(&r.ID); err != nil {
			return nil, fmt.Errorf("%w: scanning record id: %w", domain.ErrVectorStore, err)
		}
		ids = append(ids, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing record ids: %w", domain.ErrVectorStore, err)
	}
	return ids, nil
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
