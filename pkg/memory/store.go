// Package memory persists successful tool outputs in SQLite and serves
// full-text similarity search over them.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"sentinai/pkg/logx"
)

// DefaultCollection is the collection records are written to.
const DefaultCollection = "sentinai_documents"

// DefaultK is the number of results SimilaritySearch returns when k <= 0.
const DefaultK = 5

var (
	// ErrNoTexts is returned by AddDocuments for an empty batch.
	ErrNoTexts = errors.New("no texts provided to add")
	// ErrEmptyQuery is returned by SimilaritySearch for a blank query.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	rowid      INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	collection TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(content, collection UNINDEXED);

CREATE TRIGGER IF NOT EXISTS documents_fts_insert AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, content, collection) VALUES (new.rowid, new.content, new.collection);
END;
CREATE TRIGGER IF NOT EXISTS documents_fts_delete AFTER DELETE ON documents BEGIN
	DELETE FROM documents_fts WHERE rowid = old.rowid;
END;
`

// Record is one stored document.
type Record struct {
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	// Score is the relevance of a search hit; higher is better. Zero outside search results.
	Score float64 `json:"similarity_score"`
}

// Store is a SQLite-backed document collection. It is safe for concurrent use.
type Store struct {
	db         *sql.DB
	logger     *logx.Logger
	collection string
	now        func() time.Time
}

// Open opens (creating if needed) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create memory directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{
		db:         db,
		logger:     logx.NewLogger("memory"),
		collection: DefaultCollection,
		now:        time.Now,
	}
	s.logger.Info("📦 Memory store initialized: %s", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// AddDocuments stores texts in one transaction and returns how many were
// added. metadatas is matched to texts by index and may be shorter.
func (s *Store) AddDocuments(ctx context.Context, texts []string, metadatas []map[string]any) (int, error) {
	if len(texts) == 0 {
		return 0, ErrNoTexts
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, collection, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	created := s.now().UTC().Format(time.RFC3339Nano)
	for i, text := range texts {
		var meta map[string]any
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		encoded, err := encodeMetadata(meta)
		if err != nil {
			return 0, fmt.Errorf("document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), s.collection, text, encoded, created); err != nil {
			return 0, fmt.Errorf("failed to add document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit documents: %w", err)
	}
	s.logger.Debug("Added %d documents to %s", len(texts), s.collection)
	return len(texts), nil
}

// SimilaritySearch returns up to k records ranked by BM25 relevance to query.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultK
	}

	match := ftsQuery(query)
	if match == "" {
		return []Record{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.content, d.metadata, d.created_at, bm25(documents_fts) AS rank
		FROM documents_fts f
		JOIN documents d ON d.rowid = f.rowid
		WHERE documents_fts MATCH ? AND d.collection = ?
		ORDER BY rank
		LIMIT ?`, match, s.collection, k)
	if err != nil {
		return nil, fmt.Errorf("FTS query failed: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Close in defer is safe

	results := []Record{}
	for rows.Next() {
		var (
			rec      Record
			metadata string
			created  string
			rank     float64
		)
		if err := rows.Scan(&rec.ID, &rec.Content, &metadata, &created, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", rec.ID, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		// bm25 is negative with lower meaning more relevant.
		rec.Score = math.Round(-rank*1e4) / 1e4
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return results, nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, s.collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// DeleteCollection removes every record in the collection.
func (s *Store) DeleteCollection(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, s.collection)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("🗑️  Deleted collection %s (%d documents)", s.collection, n)
	return nil
}

func encodeMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ftsQuery turns free text into an FTS5 OR query of quoted terms so user
// input can never be parsed as FTS syntax.
func ftsQuery(query string) string {
	terms := termPattern.FindAllString(query, -1)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
