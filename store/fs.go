package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// FsStore writes one file per document key, grouped by kind.
type FsStore struct {
	logger *slog.Logger
	fs     afero.Fs
	root   string
}

func NewFsStore(logger *slog.Logger, fsys afero.Fs, root string) *FsStore {
	return &FsStore{
		logger: logger.With("module", "fs_store"),
		fs:     fsys,
		root:   root,
	}
}

func (s *FsStore) Put(_ context.Context, doc Document) error {
	body, err := doc.Body()
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, string(doc.Kind))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, doc.FileName())
	if err := afero.WriteFile(s.fs, path, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	s.logger.Debug("document stored", slog.String("path", path), slog.Int("bytes", len(body)))
	return nil
}
