package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cyryl1/herb-wise-frontend/internal/storage"
)

// Sessions returns every session summary, most recently updated first.
// When nothing is stored (or the index blob is undecodable) it returns
// an empty slice, never nil.
func (s *Store) Sessions() []Summary {
	encoded, err := s.backend.Get(s.cfg.IndexKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("read session index", "error", err)
		}
		return []Summary{}
	}

	var summaries []Summary
	if err := s.codec.Decode(encoded, &summaries); err != nil {
		s.logger.Debug("session index undecodable, treating as empty", "error", err)
		return []Summary{}
	}
	if summaries == nil {
		summaries = []Summary{}
	}

	// The blob is written sorted, but a foreign writer may not have
	// bothered; the ordering contract is ours to keep.
	sortByRecency(summaries)
	return summaries
}

// upsertIndex recomputes the summary for sessionID and rewrites the
// whole index blob. O(n) per mutation is fine: conversation counts are
// dozens, not millions.
func (s *Store) upsertIndex(sessionID string, transcript []Message, created, updated time.Time) error {
	summaries := s.Sessions()

	entry := Summary{
		SessionID:    sessionID,
		Title:        deriveTitle(transcript, s.cfg.TitleBudget),
		CreatedAt:    created,
		UpdatedAt:    updated,
		MessageCount: len(transcript),
	}

	replaced := false
	for i := range summaries {
		if summaries[i].SessionID == sessionID {
			summaries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		summaries = append([]Summary{entry}, summaries...)
	}

	sortByRecency(summaries)
	return s.writeIndex(summaries)
}

// removeIndex filters sessionID out of the index and persists the rest.
func (s *Store) removeIndex(sessionID string) error {
	summaries := s.Sessions()
	kept := summaries[:0]
	for _, entry := range summaries {
		if entry.SessionID != sessionID {
			kept = append(kept, entry)
		}
	}
	return s.writeIndex(kept)
}

func (s *Store) writeIndex(summaries []Summary) error {
	encoded, err := s.codec.Encode(summaries)
	if err != nil {
		return fmt.Errorf("encode session index: %w", err)
	}
	if err := s.backend.Set(s.cfg.IndexKey, encoded); err != nil {
		return fmt.Errorf("write session index: %w", err)
	}
	return nil
}

func sortByRecency(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
}

// deriveTitle builds a session title from the first user-authored text
// message, truncated to budget characters with an ellipsis marker.
// Falls back to DefaultTitle when no user text exists yet.
func deriveTitle(transcript []Message, budget int) string {
	for _, msg := range transcript {
		if msg.Sender != SenderUser || msg.Text == "" {
			continue
		}
		runes := []rune(msg.Text)
		if len(runes) <= budget {
			return msg.Text
		}
		return string(runes[:budget]) + titleEllipsis
	}
	return DefaultTitle
}

// Groups buckets summaries by recency for the sidebar.
type Groups struct {
	Today         []Summary
	Yesterday     []Summary
	Previous7Days []Summary
	Older         []Summary
}

// GroupByDate splits summaries into day buckets relative to now, using
// local midnight boundaries. Input order is preserved within buckets.
func GroupByDate(summaries []Summary, now time.Time) Groups {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)

	var groups Groups
	for _, entry := range summaries {
		switch {
		case !entry.UpdatedAt.Before(today):
			groups.Today = append(groups.Today, entry)
		case !entry.UpdatedAt.Before(yesterday):
			groups.Yesterday = append(groups.Yesterday, entry)
		case !entry.UpdatedAt.Before(lastWeek):
			groups.Previous7Days = append(groups.Previous7Days, entry)
		default:
			groups.Older = append(groups.Older, entry)
		}
	}
	return groups
}
