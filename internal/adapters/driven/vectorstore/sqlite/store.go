// Package sqlite provides a persistent SQLite-backed vector store.
//
// Embeddings are stored as little-endian float32 blobs. Similarity is
// computed in-process: candidate chunks are streamed out of the database
// and ranked with the same cosine scoring the in-memory store uses, so
// both backends return identical orderings for the same data.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/libris/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/vectormath"
)

var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite vector store at the specified data directory.
// If dataDir is empty, defaults to ~/.libris/data/vectors.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".libris", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// AddDocument stores a document and its chunks in a single transaction,
// replacing any previous version of the same document.
func (s *Store) AddDocument(ctx context.Context, collection string, doc domain.Document, chunks []domain.DocumentChunk) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("%w: document ID is empty", domain.ErrInvalidInput)
	}
	for i := range chunks {
		if chunks[i].DocumentID != doc.ID {
			return 0, fmt.Errorf("%w: chunk %d belongs to document %q, not %q",
				domain.ErrInvalidInput, i, chunks[i].DocumentID, doc.ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	dimension, position, err := s.ensureCollection(ctx, tx, collection)
	if err != nil {
		return 0, err
	}

	for i := range chunks {
		if !chunks[i].HasEmbedding() {
			continue
		}
		if dimension == 0 {
			dimension = len(chunks[i].Embedding)
		}
		if len(chunks[i].Embedding) != dimension {
			return 0, fmt.Errorf("chunk %q has dimension %d, collection %q expects %d: %w",
				chunks[i].ID, len(chunks[i].Embedding), collection, dimension, domain.ErrDimensionMismatch)
		}
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshalling metadata: %w", err)
	}

	// Replacing a document keeps its original position so pagination
	// order stays stable across re-ingestion.
	var existingPos sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT position FROM documents WHERE collection = ? AND id = ?",
		collection, doc.ID).Scan(&existingPos)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking existing document: %w", err)
	}
	docPos := position
	if existingPos.Valid {
		docPos = int(existingPos.Int64)
	} else {
		position++
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, name, content_type, size_bytes, metadata, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			name = excluded.name,
			content_type = excluded.content_type,
			size_bytes = excluded.size_bytes,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, collection, doc.ID, doc.Name, doc.ContentType, doc.SizeBytes,
		string(metadataJSON), docPos, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection = ? AND document_id = ?",
		collection, doc.ID); err != nil {
		return 0, fmt.Errorf("clearing previous chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, document_id, content, position, start_byte, end_byte, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		chunkMetadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, collection, chunk.ID, chunk.DocumentID,
			chunk.Text, chunk.Index, chunk.StartOffset, chunk.EndOffset,
			embeddingBlob, string(chunkMetadata)); err != nil {
			return 0, fmt.Errorf("saving chunk: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE collections SET dimension = ?, next_pos = ? WHERE name = ?
	`, dimension, position, collection); err != nil {
		return 0, fmt.Errorf("updating collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(chunks), nil
}

// RemoveDocument deletes a document and all its chunks.
func (s *Store) RemoveDocument(ctx context.Context, collection, documentID string) (bool, error) {
	// Chunks cascade via the foreign key.
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, documentID)
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted rows: %w", err)
	}
	return affected > 0, nil
}

// SimilaritySearch streams all embedded chunks of the collection and ranks
// them by cosine similarity against the query embedding.
func (s *Store) SimilaritySearch(ctx context.Context, collection string, query []float32, opts domain.SearchOptions) ([]driven.ScoredChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", domain.ErrInvalidInput)
	}

	var dimension int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", collection).Scan(&dimension)
	if err == sql.ErrNoRows {
		return []driven.ScoredChunk{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection dimension: %w", err)
	}
	if dimension != 0 && len(query) != dimension {
		return nil, fmt.Errorf("query has dimension %d, collection %q expects %d: %w",
			len(query), collection, dimension, domain.ErrDimensionMismatch)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, start_byte, end_byte, embedding, metadata
		FROM chunks
		WHERE collection = ? AND embedding IS NOT NULL
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.ScoredChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if !chunk.HasEmbedding() {
			continue
		}
		if !matchesFilter(chunk.Metadata, opts.Filter) {
			continue
		}
		score := vectormath.Cosine(query, chunk.Embedding)
		if score < opts.MinScore {
			continue
		}
		hits = append(hits, driven.ScoredChunk{Chunk: *chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// GetDocument retrieves a document by ID, without its chunks.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, content_type, size_bytes, metadata, created_at, updated_at
		FROM documents WHERE collection = ? AND id = ?
	`, collection, id)

	return scanDocument(row)
}

// ListDocuments pages through documents in insertion order.
func (s *Store) ListDocuments(ctx context.Context, collection string, limit, offset int) ([]domain.Document, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as unbounded
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, content_type, size_bytes, metadata, created_at, updated_at
		FROM documents WHERE collection = ?
		ORDER BY position
		LIMIT ? OFFSET ?
	`, collection, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// GetDocumentChunks returns a document's chunks in index order.
func (s *Store) GetDocumentChunks(ctx context.Context, collection, documentID string) ([]domain.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, start_byte, end_byte, embedding, metadata
		FROM chunks WHERE collection = ? AND document_id = ?
		ORDER BY position
	`, collection, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Stats summarises a collection.
func (s *Store) Stats(ctx context.Context, collection string) (domain.CollectionStats, error) {
	stats := domain.CollectionStats{Collection: collection}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&stats.Documents)
	if err != nil {
		return stats, fmt.Errorf("counting documents: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", collection).Scan(&stats.Chunks)
	if err != nil {
		return stats, fmt.Errorf("counting chunks: %w", err)
	}

	return stats, nil
}

// ensureCollection loads (or creates) the collection row and returns its
// dimension and next document position. Caller owns the transaction.
func (s *Store) ensureCollection(ctx context.Context, tx *sql.Tx, name string) (dimension, position int, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT dimension, next_pos FROM collections WHERE name = ?", name).
		Scan(&dimension, &position)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, dimension, next_pos) VALUES (?, 0, 0)", name); err != nil {
			return 0, 0, fmt.Errorf("creating collection: %w", err)
		}
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("getting collection: %w", err)
	}
	return dimension, position, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string

	if err := row.Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.SizeBytes,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string

	if err := rows.Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.SizeBytes,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.DocumentChunk, error) {
	var chunk domain.DocumentChunk
	var embeddingBlob []byte
	var metadataJSON string

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text,
		&chunk.Index, &chunk.StartOffset, &chunk.EndOffset,
		&embeddingBlob, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}

// matchesFilter reports whether metadata contains every filter pair.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
