package session

import "errors"

// Status classifies an attempt to enter a conversation view.
type Status string

// Lifecycle states. StatusExpired and StatusMissing terminate in the
// same externally visible action (redirect to the start flow); they are
// distinguished only for diagnostics.
const (
	// StatusNew: no prior record existed and seeded content created one.
	StatusNew Status = "new"

	// StatusActive: a record exists and its age is below the expiry
	// threshold.
	StatusActive Status = "active"

	// StatusExpired: a record exists but is older than the configured
	// session duration.
	StatusExpired Status = "expired"

	// StatusMissing: no usable id, or the id has no record.
	StatusMissing Status = "missing"
)

// Usable reports whether a view may adopt the transcript, as opposed to
// redirecting to the start flow.
func (s Status) Usable() bool {
	return s == StatusNew || s == StatusActive
}

// Enter resolves what a conversation view should do for the given id
// and optional seed transcript (fresh content handed over by the start
// flow).
//
//   - No id and no seed: StatusMissing.
//   - Id with a record younger than the session duration: StatusActive,
//     transcript adopted from storage. If a seed was supplied anyway
//     (re-entry race) the existing record wins and the seed is
//     discarded, so history is never duplicated.
//   - Id with a record past the session duration: StatusExpired.
//   - Id without a record, with seed: the record is created immediately
//     (before any assistant reply) so a reload does not lose it;
//     StatusNew. Creation is best-effort: on a storage failure the
//     in-memory record is still returned.
//   - Id without a record, without seed: StatusMissing.
func (s *Store) Enter(sessionID string, seed []Message) (*Record, Status) {
	if sessionID == "" {
		return nil, StatusMissing
	}

	record, err := s.Load(sessionID)
	if err == nil {
		if s.now().Sub(record.CreatedAt) > s.cfg.Duration {
			s.logger.Debug("session expired",
				"session_id", sessionID,
				"created_at", record.CreatedAt,
			)
			return record, StatusExpired
		}
		if len(seed) > 0 {
			s.logger.Debug("seed discarded, existing record wins", "session_id", sessionID)
		}
		return record, StatusActive
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("enter session", "session_id", sessionID, "error", err)
	}

	if len(seed) == 0 {
		return nil, StatusMissing
	}

	now := s.now()
	if err := s.Save(sessionID, seed, now); err != nil {
		s.logger.Warn("seeded session not persisted", "session_id", sessionID, "error", err)
	}
	return &Record{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  seed,
	}, StatusNew
}
