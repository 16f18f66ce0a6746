package cmd

import (
	"fmt"

	"github.com/cyryl1/herb-wise-frontend/internal/config"
	"github.com/cyryl1/herb-wise-frontend/internal/log"
	"github.com/cyryl1/herb-wise-frontend/internal/obfuscate"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
	"github.com/cyryl1/herb-wise-frontend/internal/storage"
)

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
}

// openStore wires the file backend, the obfuscation codec, and the
// session store from configuration. The returned backend is exposed so
// the caller can attach a filesystem watcher.
func openStore(cfg *config.Config, logger log.Logger) (*session.Store, *storage.File, error) {
	backend, err := storage.NewFile(cfg.StorageDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage at %s: %w", cfg.StorageDir, err)
	}

	codec, err := obfuscate.New(cfg.SecretKey)
	if err != nil {
		return nil, nil, fmt.Errorf("creating codec: %w", err)
	}

	store := session.NewStore(backend, codec, session.Config{
		KeyPrefix:   cfg.KeyPrefix,
		IndexKey:    cfg.IndexKey,
		Duration:    cfg.SessionDuration,
		TitleBudget: cfg.TitleBudget,
	}, logger)
	return store, backend, nil
}
