package handlers

import (
	"net/http"
	"time"

	"github.com/cyryl1/herb-wise-frontend/internal/log"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
	"github.com/cyryl1/herb-wise-frontend/internal/web/sse"
)

// keepAliveInterval paces heartbeat events on the change feed so idle
// connections are not reaped by intermediaries.
const keepAliveInterval = 30 * time.Second

// Sessions exposes the conversation history: the sidebar partial, the
// delete operation, and the cross-tab change feed.
type Sessions struct {
	store  *session.Store
	logger log.Logger
}

func NewSessions(store *session.Store, logger log.Logger) *Sessions {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Sessions{store: store, logger: logger}
}

// List serves the sidebar partial, grouped by recency. The active
// conversation, if any, arrives as a query parameter so it can be
// highlighted.
func (s *Sessions) List(w http.ResponseWriter, r *http.Request) {
	data := buildSidebar(s.store, r.URL.Query().Get("active"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render(w, "sidebar", data); err != nil {
		s.logger.Error("render sidebar partial", "error", err)
	}
}

// Delete removes one conversation. Deleting an unknown id succeeds: the
// caller wanted it gone and it is.
func (s *Sessions) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing conversation id")
		return
	}
	if err := s.store.Remove(id); err != nil {
		s.logger.Warn("delete conversation", "conversation_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "could not delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams a sessionsUpdated event whenever any conversation is
// saved or removed, from this tab or another. The stream stays open
// until the client disconnects.
func (s *Sessions) Events(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the stream headers go out so a change landing
	// right after the client connects is never missed.
	signal, unsubscribe := s.store.Notifications().Subscribe()
	defer unsubscribe()

	stream, err := sse.NewWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signal:
			if !ok {
				return
			}
			if err := stream.WriteEvent(ctx, "sessionsUpdated", "{}"); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := stream.WriteEvent(ctx, "ping", "{}"); err != nil {
				return
			}
		}
	}
}
