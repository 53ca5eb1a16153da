package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/repositories/codec"
	"go.uber.org/zap"
)

// FileStore keeps the rules document in a single JSON or YAML file
type FileStore struct {
	path   string
	format codec.Format
	logger *zap.Logger
}

// NewFileStore creates a file-backed document store. The encoding follows the file extension.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	format, err := codec.FromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, format: format, logger: logger}, nil
}

var _ repositories.RuleDocumentStore = (*FileStore)(nil)

// Init writes an empty document if the file does not exist yet
func (s *FileStore) Init(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat rules document: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create rules directory: %w", err)
		}
	}
	if err := s.Save(ctx, models.RulesDocument{}); err != nil {
		return err
	}

	s.logger.Info("created empty rules document", zap.String("path", s.path))
	return nil
}

// Load reads and decodes the whole file
func (s *FileStore) Load(ctx context.Context) (models.RulesDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read rules document: %w", err)
	}

	doc := models.RulesDocument{}
	if err := codec.Unmarshal(s.format, data, &doc); err != nil {
		return nil, fmt.Errorf("decode rules document %s: %w", s.path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode rules document %s: %w", s.path, ErrEmptyDocument)
	}
	return doc, nil
}

// Save encodes and overwrites the whole file
func (s *FileStore) Save(ctx context.Context, doc models.RulesDocument) error {
	data, err := codec.Marshal(s.format, doc)
	if err != nil {
		return fmt.Errorf("encode rules document: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o640); err != nil {
		return fmt.Errorf("write rules document: %w", err)
	}
	return nil
}

// HealthCheck verifies the file exists
func (s *FileStore) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("rules document unavailable: %w", err)
	}
	return nil
}

// Path returns the configured file path.
func (s *FileStore) Path() string { return s.path }
