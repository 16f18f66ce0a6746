package session

import "time"

// Defaults for Config. The key names match the historical storage layout
// so existing stores remain readable.
const (
	DefaultKeyPrefix = "herb_wise_chat_session"
	DefaultIndexKey  = "herb_wise_chat_sessions"

	// DefaultDuration is the session expiry threshold: a session whose
	// age (now - CreatedAt) exceeds it is classified StatusExpired.
	DefaultDuration = 24 * time.Hour

	// DefaultTitleBudget is the character budget for derived titles.
	DefaultTitleBudget = 30

	// DefaultTitle is used when a transcript has no user text yet.
	DefaultTitle = "New Chat"

	// titleEllipsis marks a truncated title.
	titleEllipsis = "..."
)

// Config carries the storage namespace and policy knobs for a Store.
// The zero value is usable: every field falls back to its default.
// Tests override KeyPrefix/IndexKey for namespace isolation.
type Config struct {
	// KeyPrefix namespaces per-session record keys:
	// "<KeyPrefix>_<sessionID>".
	KeyPrefix string

	// IndexKey is the single key holding the whole index blob.
	IndexKey string

	// Duration is the session expiry threshold.
	Duration time.Duration

	// TitleBudget is the maximum title length before truncation.
	TitleBudget int
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.IndexKey == "" {
		c.IndexKey = DefaultIndexKey
	}
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.TitleBudget <= 0 {
		c.TitleBudget = DefaultTitleBudget
	}
	return c
}

// recordKey derives the storage key for a session id.
func (c Config) recordKey(sessionID string) string {
	return c.KeyPrefix + "_" + sessionID
}
