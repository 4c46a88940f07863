package database

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"movie-mood-service/internal/config"
)

// NewBadger opens the embedded Badger store at cfg.Path.
// An empty path opens an in-memory instance.
func NewBadger(cfg config.BadgerConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	slog.Info("badger store opened", "path", cfg.Path)
	return db, nil
}
