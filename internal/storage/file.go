package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
)

const (
	// valueExt is the extension for stored values. Files without it
	// (lock file, temp files) are ignored by Get and by the watcher.
	valueExt = ".dat"

	lockFile = ".lock"
)

// File is a Backend storing one file per key inside a directory.
//
// Writes are atomic (temp file + rename) and serialized across processes
// with a lock file via github.com/gofrs/flock, so two processes sharing
// the directory never observe a torn value. Two processes writing the
// same key concurrently resolve to last-writer-wins; that is the accepted
// semantics, not a defect to engineer around.
//
// Watch exposes directory change notifications so other processes'
// writes become visible without polling.
type File struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewFile creates a file backend rooted at dir, creating it if needed.
func NewFile(dir string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &File{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFile)),
		logger: logger,
	}, nil
}

// Dir returns the backing directory.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+valueExt)
}

// Get implements Backend.
func (f *File) Get(key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), nil
}

// Set implements Backend using an atomic temp-file + rename write under
// the cross-process lock.
func (f *File) Set(key, value string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("locking storage: %w", err)
	}
	defer func() {
		if err := f.lock.Unlock(); err != nil {
			f.logger.Warn("unlock storage", "error", err)
		}
	}()

	tmp, err := os.CreateTemp(f.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (f *File) Delete(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Watch returns a coalescing channel that signals whenever another
// writer changes the directory. This is the same-origin storage-change
// signal: a second process (or a second window of the UI) saving a
// session becomes observable here.
//
// The channel carries no payload; observers are expected to re-read
// whatever they display. It is closed when ctx is canceled.
//
// Note: unlike the browser's storage event, fsnotify also reports this
// process's own writes. Observers must be idempotent re-readers, so the
// extra wakeups are harmless.
func (f *File) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", f.dir, err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer func() {
			if err := watcher.Close(); err != nil {
				f.logger.Warn("close watcher", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Only completed values matter; temp files and the
				// lock file churn on every write.
				if !strings.HasSuffix(event.Name, valueExt) {
					continue
				}
				if !event.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove) {
					continue
				}
				select {
				case changes <- struct{}{}:
				default: // already pending, coalesce
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("storage watcher", "error", err)
			}
		}
	}()

	return changes, nil
}
