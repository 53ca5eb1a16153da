package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const documentName = "site_rules"

// SQLiteStore snapshots the whole rules document as one JSON row in SQLite
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the database file and its document table
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newSQLiteStore(db, path, logger)
}

func newSQLiteStore(db *sql.DB, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

var _ repositories.RuleDocumentStore = (*SQLiteStore)(nil)

// Init inserts an empty document when the row is absent
func (s *SQLiteStore) Init(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(name, payload) VALUES(?, ?) ON CONFLICT(name) DO NOTHING`,
		documentName, []byte("{}"))
	if err != nil {
		return fmt.Errorf("init rules document: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("created empty rules document", zap.String("path", s.path))
	}
	return nil
}

// Load reads the document row. A missing row means the store was never initialised.
func (s *SQLiteStore) Load(ctx context.Context) (models.RulesDocument, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, documentName).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rules document not initialised in %s", s.path)
		}
		return nil, fmt.Errorf("select rules document: %w", err)
	}

	doc := models.RulesDocument{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode rules document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode rules document in %s: %w", s.path, ErrEmptyDocument)
	}
	return doc, nil
}

// Save upserts the whole document
func (s *SQLiteStore) Save(ctx context.Context, doc models.RulesDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode rules document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(name, payload) VALUES(?, ?) ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
		documentName, payload); err != nil {
		return fmt.Errorf("upsert rules document: %w", err)
	}
	return nil
}

// HealthCheck pings the database
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
