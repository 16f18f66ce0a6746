package session

import (
	"errors"
	"time"
)

// ErrNotFound indicates the requested session does not exist in storage.
// A record that fails to decode is reported the same way: foreign or
// corrupt payloads are treated as absence, never as a crash.
var ErrNotFound = errors.New("session not found")

// ErrEmptyMessage indicates a message carries neither text nor an image.
var ErrEmptyMessage = errors.New("message has neither text nor image")

// Sender identifies who authored a message.
type Sender string

// Valid senders.
const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// HerbInfo is a structured identification result attached to an
// assistant message.
type HerbInfo struct {
	Name           string   `json:"name"`
	ScientificName string   `json:"scientificName"`
	LocalNames     []string `json:"localNames,omitempty"`

	// Image is a self-contained data URI for the representative photo,
	// or empty while the asynchronous backfill is pending (or failed).
	// Never a remote URL: those go stale and can leak across sessions.
	Image string `json:"image,omitempty"`

	Uses        []string `json:"uses,omitempty"`
	Benefits    []string `json:"benefits,omitempty"`
	Preparation []string `json:"preparation,omitempty"`
	Safety      []string `json:"safety,omitempty"`
}

// Message is one chat turn. At least one of Text or Image must be set;
// HerbInfo may accompany either.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"` // data URI
	HerbInfo  *HerbInfo `json:"herbInfo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the message content invariant.
func (m Message) Validate() error {
	if m.Text == "" && m.Image == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Record is the persisted unit: one conversation transcript with its
// timestamps. The JSON field names match the historical storage format,
// which is why CreatedAt serializes as "timestamp".
type Record struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"lastUpdated"`
	Messages  []Message `json:"messages"`
}

// Summary is the lightweight index entry describing a session without
// its transcript.
type Summary struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"timestamp"`
	UpdatedAt    time.Time `json:"lastUpdated"`
	MessageCount int       `json:"messageCount"`
}
