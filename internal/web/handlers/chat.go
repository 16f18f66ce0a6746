package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cyryl1/herb-wise-frontend/internal/assistant"
	"github.com/cyryl1/herb-wise-frontend/internal/log"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
	"github.com/cyryl1/herb-wise-frontend/internal/web/sse"
)

// chunkRunes is how many runes of assistant text go into each streamed
// chunk event.
const chunkRunes = 24

// backfillTimeout bounds the asynchronous image fetch that runs after
// the chat response has been delivered.
const backfillTimeout = 30 * time.Second

// Assistant is the slice of the backend client the chat handler needs.
type Assistant interface {
	Send(ctx context.Context, req assistant.Request) (*assistant.Response, error)
	EmbedImage(ctx context.Context, rawURL string) (string, error)
}

// Chat handles chat turns: it persists the user's message, forwards the
// turn to the assistant backend, persists the reply, and streams it to
// the browser as server-sent events.
type Chat struct {
	store     *session.Store
	assistant Assistant
	logger    log.Logger
}

func NewChat(store *session.Store, asst Assistant, logger log.Logger) *Chat {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Chat{store: store, assistant: asst, logger: logger}
}

type sendMeta struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type sendChunk struct {
	Text string `json:"text"`
}

type sendDone struct {
	Message session.Message `json:"message"`
}

// Send handles POST /chat/send.
//
// The user's turn is persisted before the backend is contacted, so a
// backend outage never loses what the user typed. A turn without a
// conversation id seeds a provisional session; once the backend assigns
// the real conversation id, the transcript moves under it.
func (c *Chat) Send(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.TextInput == "" && req.ImageBase64 == "" {
		writeJSONError(w, http.StatusBadRequest, "message needs text or an image")
		return
	}

	now := time.Now()
	userMsg := session.Message{
		ID:        uuid.NewString(),
		Sender:    session.SenderUser,
		Text:      req.TextInput,
		Image:     req.ImageBase64,
		Timestamp: now,
	}

	var (
		transcript  []session.Message
		createdHint time.Time
		provisional string
	)
	conversationID := req.ConversationID
	if conversationID == "" {
		// First turn: seed a provisional session immediately so the
		// user's message survives even if the backend call fails.
		provisional = uuid.NewString()
		conversationID = provisional
		record, _ := c.store.Enter(provisional, []session.Message{userMsg})
		transcript = record.Messages
		createdHint = record.CreatedAt
	} else {
		record, status := c.store.Enter(conversationID, nil)
		if !status.Usable() {
			c.logger.Debug("conversation not usable",
				"conversation_id", conversationID,
				"status", string(status),
			)
			reason := "conversation expired"
			if status == session.StatusMissing {
				reason = "conversation not found"
			}
			writeJSONError(w, http.StatusGone, reason)
			return
		}
		transcript = append(record.Messages, userMsg)
		createdHint = record.CreatedAt
		if err := c.store.Save(conversationID, transcript, createdHint); err != nil {
			c.logger.Warn("persist user turn", "conversation_id", conversationID, "error", err)
		}
	}

	// The backend assigns conversation ids; a provisional id stays local.
	backendReq := req
	if provisional != "" {
		backendReq.ConversationID = ""
	}
	resp, err := c.assistant.Send(r.Context(), backendReq)
	if err != nil {
		c.logger.Warn("assistant send", "conversation_id", conversationID, "error", err)
		if errors.Is(err, assistant.ErrBackend) {
			writeJSONError(w, http.StatusBadGateway, "the assistant is unavailable right now, please try again")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if resp.ConversationID != "" && resp.ConversationID != conversationID {
		// Move the transcript under the backend's id. Save first so a
		// crash between the two steps cannot drop the conversation.
		if err := c.store.Save(resp.ConversationID, transcript, createdHint); err != nil {
			c.logger.Warn("migrate conversation", "conversation_id", resp.ConversationID, "error", err)
		} else {
			if provisional != "" {
				if err := c.store.Remove(provisional); err != nil {
					c.logger.Warn("remove provisional session", "conversation_id", provisional, "error", err)
				}
			}
			conversationID = resp.ConversationID
		}
	}

	aiMsg, remoteImageURL := assistant.ToMessage(resp, time.Now())
	transcript = append(transcript, aiMsg)
	if err := c.store.Save(conversationID, transcript, createdHint); err != nil {
		c.logger.Warn("persist assistant turn", "conversation_id", conversationID, "error", err)
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ctx := r.Context()
	meta := sendMeta{ConversationID: conversationID, MessageID: aiMsg.ID}
	if err := stream.WriteJSON(ctx, "meta", meta); err != nil {
		return
	}
	for _, part := range splitRunes(aiMsg.Text, chunkRunes) {
		if err := stream.WriteJSON(ctx, "chunk", sendChunk{Text: part}); err != nil {
			return
		}
	}
	if err := stream.WriteJSON(ctx, "done", sendDone{Message: aiMsg}); err != nil {
		return
	}

	if remoteImageURL != "" {
		go c.backfillImage(conversationID, aiMsg.ID, remoteImageURL)
	}
}

// backfillImage fetches the identification photo, embeds it as a data
// URI, and rewrites the stored message. Failures leave the transcript
// as delivered: a missing photo is better than a broken record.
func (c *Chat) backfillImage(conversationID, messageID, rawURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
	defer cancel()

	dataURI, err := c.assistant.EmbedImage(ctx, rawURL)
	if err != nil {
		c.logger.Warn("embed identification image",
			"conversation_id", conversationID,
			"message_id", messageID,
			"error", err,
		)
		return
	}

	record, err := c.store.Load(conversationID)
	if err != nil {
		c.logger.Debug("image backfill target gone", "conversation_id", conversationID)
		return
	}
	updated := false
	for i := range record.Messages {
		if record.Messages[i].ID != messageID {
			continue
		}
		record.Messages[i].Image = dataURI
		if record.Messages[i].HerbInfo != nil {
			record.Messages[i].HerbInfo.Image = dataURI
		}
		updated = true
		break
	}
	if !updated {
		return
	}
	if err := c.store.Save(conversationID, record.Messages, record.CreatedAt); err != nil {
		c.logger.Warn("persist image backfill", "conversation_id", conversationID, "error", err)
	}
}

func splitRunes(s string, size int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	parts := make([]string, 0, len(runes)/size+1)
	for len(runes) > size {
		parts = append(parts, string(runes[:size]))
		runes = runes[size:]
	}
	return append(parts, string(runes))
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
