package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cyryl1/herb-wise-frontend/internal/obfuscate"
	"github.com/cyryl1/herb-wise-frontend/internal/storage"
)

// Store persists session records and keeps the index in sync.
//
// Store is safe for concurrent use within a process. Writes are
// best-effort: callers that only care about the chat flow may log and
// ignore returned errors (the in-memory transcript stays usable, it
// just won't survive a reload).
type Store struct {
	backend storage.Backend
	codec   *obfuscate.Codec
	cfg     Config
	bus     *Bus
	logger  *slog.Logger

	// mu serializes mutations. The index update is a read-modify-write
	// of one blob, so two concurrent writers would otherwise lose one
	// summary and leave a record unindexed.
	mu sync.Mutex

	// now is the clock; replaced in tests to exercise expiry.
	now func() time.Time
}

// NewStore creates a Store over the given backend and codec.
// cfg fields fall back to their defaults (see Config).
func NewStore(backend storage.Backend, codec *obfuscate.Codec, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		backend: backend,
		codec:   codec,
		cfg:     cfg.withDefaults(),
		bus:     NewBus(),
		logger:  logger,
		now:     time.Now,
	}
}

// Notifications returns the change bus for this store. Observers
// subscribe, re-read on every signal, and unsubscribe on teardown.
func (s *Store) Notifications() *Bus {
	return s.bus
}

// Save persists the transcript under sessionID and upserts the index
// entry in the same logical operation, then publishes a change signal.
//
// createdHint seeds CreatedAt only when no prior record exists; across
// updates the original creation time is preserved. UpdatedAt is always
// refreshed to now.
func (s *Store) Save(sessionID string, transcript []Message, createdHint time.Time) error {
	if sessionID == "" {
		return fmt.Errorf("save session: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := createdHint
	if prior, err := s.Load(sessionID); err == nil {
		created = prior.CreatedAt
	}
	if created.IsZero() {
		created = now
	}

	record := Record{
		SessionID: sessionID,
		CreatedAt: created,
		UpdatedAt: now,
		Messages:  transcript,
	}

	encoded, err := s.codec.Encode(record)
	if err != nil {
		s.logger.Warn("session not persisted", "session_id", sessionID, "error", err)
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := s.backend.Set(s.cfg.recordKey(sessionID), encoded); err != nil {
		s.logger.Warn("session not persisted", "session_id", sessionID, "error", err)
		return fmt.Errorf("write session %s: %w", sessionID, err)
	}

	// Record and index move together so neither side leaks ids.
	if err := s.upsertIndex(sessionID, transcript, created, now); err != nil {
		s.logger.Warn("session index not updated", "session_id", sessionID, "error", err)
		return err
	}

	s.bus.Publish()
	s.logger.Debug("session saved",
		"session_id", sessionID,
		"message_count", len(transcript),
	)
	return nil
}

// Load retrieves the record for sessionID. An absent key and a payload
// that fails to decode both return ErrNotFound: there is no session.
func (s *Store) Load(sessionID string) (*Record, error) {
	encoded, err := s.backend.Get(s.cfg.recordKey(sessionID))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	var record Record
	if err := s.codec.Decode(encoded, &record); err != nil {
		s.logger.Debug("session payload undecodable, treating as absent",
			"session_id", sessionID, "error", err)
		return nil, ErrNotFound
	}
	return &record, nil
}

// Remove deletes the record and its index entry, then publishes a
// change signal. Removing an absent session is not an error.
func (s *Store) Remove(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(s.cfg.recordKey(sessionID)); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	if err := s.removeIndex(sessionID); err != nil {
		return err
	}

	s.bus.Publish()
	s.logger.Debug("session removed", "session_id", sessionID)
	return nil
}
