package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyryl1/herb-wise-frontend/internal/assistant"
	"github.com/cyryl1/herb-wise-frontend/internal/log"
	"github.com/cyryl1/herb-wise-frontend/internal/obfuscate"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
	"github.com/cyryl1/herb-wise-frontend/internal/storage"
)

// stubAssistant is a hand-written test double for the backend client.
type stubAssistant struct {
	lastRequest *assistant.Request
	response    *assistant.Response
	sendErr     error

	embedded string
	embedErr error
}

func (s *stubAssistant) Send(_ context.Context, req assistant.Request) (*assistant.Response, error) {
	s.lastRequest = &req
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return s.response, nil
}

func (s *stubAssistant) EmbedImage(_ context.Context, _ string) (string, error) {
	if s.embedErr != nil {
		return "", s.embedErr
	}
	return s.embedded, nil
}

func newTestStore(t *testing.T, cfg session.Config) *session.Store {
	t.Helper()
	codec, err := obfuscate.New("test_secret")
	if err != nil {
		t.Fatalf("obfuscate.New: %v", err)
	}
	return session.NewStore(storage.NewMemory(), codec, cfg, log.NewNop())
}

func textResponse(conversationID, text string) *assistant.Response {
	return &assistant.Response{
		ConversationID: conversationID,
		ResponseType:   assistant.ResponseTypeText,
		TextMessage:    &assistant.TextMessage{TextContent: text},
	}
}

func postSend(t *testing.T, h *Chat, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Send(rec, req)
	return rec
}

func TestSendNewConversation(t *testing.T) {
	store := newTestStore(t, session.Config{})
	stub := &stubAssistant{response: textResponse("conv-1", "Mint is a hardy perennial.")}
	h := NewChat(store, stub, log.NewNop())

	rec := postSend(t, h, assistant.Request{TextInput: "what is mint?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: meta") || !strings.Contains(body, "conv-1") {
		t.Errorf("stream missing meta event with backend id:\n%s", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Errorf("stream missing done event:\n%s", body)
	}

	if stub.lastRequest.ConversationID != "" {
		t.Errorf("backend saw conversation id %q, want empty for a first turn", stub.lastRequest.ConversationID)
	}

	record, err := store.Load("conv-1")
	if err != nil {
		t.Fatalf("Load(conv-1): %v", err)
	}
	if len(record.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(record.Messages))
	}
	if record.Messages[0].Sender != session.SenderUser || record.Messages[1].Sender != session.SenderAssistant {
		t.Errorf("unexpected senders: %s, %s", record.Messages[0].Sender, record.Messages[1].Sender)
	}

	// The provisional session must be gone once the backend id exists.
	summaries := store.Sessions()
	if len(summaries) != 1 {
		t.Fatalf("got %d indexed sessions, want 1", len(summaries))
	}
	if summaries[0].SessionID != "conv-1" {
		t.Errorf("indexed session = %q, want conv-1", summaries[0].SessionID)
	}
}

func TestSendExistingConversation(t *testing.T) {
	store := newTestStore(t, session.Config{})
	seed := []session.Message{
		{ID: "m1", Sender: session.SenderUser, Text: "hello", Timestamp: time.Now()},
		{ID: "m2", Sender: session.SenderAssistant, Text: "hi", Timestamp: time.Now()},
	}
	if err := store.Save("conv-7", seed, time.Time{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	stub := &stubAssistant{response: textResponse("conv-7", "chamomile helps with sleep")}
	h := NewChat(store, stub, log.NewNop())

	rec := postSend(t, h, assistant.Request{TextInput: "and chamomile?", ConversationID: "conv-7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.lastRequest.ConversationID != "conv-7" {
		t.Errorf("backend saw conversation id %q, want conv-7", stub.lastRequest.ConversationID)
	}

	record, err := store.Load("conv-7")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(record.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(record.Messages))
	}
	if record.Messages[2].Text != "and chamomile?" {
		t.Errorf("third message = %q", record.Messages[2].Text)
	}
}

func TestSendExpiredConversation(t *testing.T) {
	store := newTestStore(t, session.Config{Duration: time.Millisecond})
	seed := []session.Message{{ID: "m1", Sender: session.SenderUser, Text: "old", Timestamp: time.Now()}}
	if err := store.Save("conv-old", seed, time.Time{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	h := NewChat(store, &stubAssistant{}, log.NewNop())
	rec := postSend(t, h, assistant.Request{TextInput: "still there?", ConversationID: "conv-old"})
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "expired") {
		t.Errorf("body = %q, want an expired reason", rec.Body.String())
	}
}

func TestSendUnknownConversation(t *testing.T) {
	h := NewChat(newTestStore(t, session.Config{}), &stubAssistant{}, log.NewNop())
	rec := postSend(t, h, assistant.Request{TextInput: "hello?", ConversationID: "ghost"})
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not found") {
		t.Errorf("body = %q, want a not-found reason", rec.Body.String())
	}
}

func TestSendEmptyTurn(t *testing.T) {
	h := NewChat(newTestStore(t, session.Config{}), &stubAssistant{}, log.NewNop())
	rec := postSend(t, h, assistant.Request{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSendBackendDownKeepsUserTurn(t *testing.T) {
	store := newTestStore(t, session.Config{})
	stub := &stubAssistant{sendErr: fmt.Errorf("boom: %w", assistant.ErrBackend)}
	h := NewChat(store, stub, log.NewNop())

	rec := postSend(t, h, assistant.Request{TextInput: "is basil edible?"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("error payload not JSON: %v", err)
	}
	if payload["error"] == "" {
		t.Error("error payload missing message")
	}

	// The provisional session survives with the user's turn in it.
	summaries := store.Sessions()
	if len(summaries) != 1 {
		t.Fatalf("got %d indexed sessions, want 1", len(summaries))
	}
	record, err := store.Load(summaries[0].SessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(record.Messages) != 1 || record.Messages[0].Text != "is basil edible?" {
		t.Errorf("persisted transcript = %+v", record.Messages)
	}
}

func TestSendImageResponseBackfillsPhoto(t *testing.T) {
	store := newTestStore(t, session.Config{})
	stub := &stubAssistant{
		response: &assistant.Response{
			ConversationID: "conv-img",
			ResponseType:   assistant.ResponseTypeImage,
			ImageMessage: &assistant.ImageMessage{
				Name:           "Peppermint",
				ScientificName: "Mentha piperita",
				ImageURL:       "http://backend/images/peppermint.jpg",
			},
		},
		embedded: "data:image/jpeg;base64,AAAA",
	}
	h := NewChat(store, stub, log.NewNop())

	rec := postSend(t, h, assistant.Request{ImageBase64: "data:image/png;base64,BBBB"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "http://backend/images") {
		t.Error("remote image URL leaked into the stream")
	}

	// The backfill runs asynchronously; poll until it lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		record, err := store.Load("conv-img")
		if err == nil && len(record.Messages) == 2 && record.Messages[1].Image != "" {
			if record.Messages[1].Image != "data:image/jpeg;base64,AAAA" {
				t.Errorf("backfilled image = %q", record.Messages[1].Image)
			}
			if hi := record.Messages[1].HerbInfo; hi == nil || hi.Image != "data:image/jpeg;base64,AAAA" {
				t.Errorf("herb info image not backfilled: %+v", hi)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("image backfill never landed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendBackfillFailureLeavesTranscript(t *testing.T) {
	store := newTestStore(t, session.Config{})
	stub := &stubAssistant{
		response: &assistant.Response{
			ConversationID: "conv-nofill",
			ResponseType:   assistant.ResponseTypeImage,
			ImageMessage:   &assistant.ImageMessage{Name: "Basil", ImageURL: "http://backend/x.jpg"},
		},
		embedErr: errors.New("unreachable"),
	}
	h := NewChat(store, stub, log.NewNop())

	rec := postSend(t, h, assistant.Request{ImageBase64: "data:image/png;base64,BBBB"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	time.Sleep(50 * time.Millisecond)
	record, err := store.Load("conv-nofill")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(record.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(record.Messages))
	}
	if record.Messages[1].Image != "" {
		t.Errorf("image = %q, want empty after failed backfill", record.Messages[1].Image)
	}
}

func TestIdentifyPage(t *testing.T) {
	p := NewPages(newTestStore(t, session.Config{}), log.NewNop())
	rec := httptest.NewRecorder()
	p.Identify(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "HerbWise") {
		t.Error("page missing app name")
	}
}

func TestDashboardWithoutConversationRedirects(t *testing.T) {
	p := NewPages(newTestStore(t, session.Config{}), log.NewNop())
	rec := httptest.NewRecorder()
	p.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestIdentifyListsRecentConversations(t *testing.T) {
	store := newTestStore(t, session.Config{})
	seed := []session.Message{{ID: "m1", Sender: session.SenderUser, Text: "lavender question", Timestamp: time.Now()}}
	if err := store.Save("conv-r", seed, time.Time{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	p := NewPages(store, log.NewNop())
	rec := httptest.NewRecorder()
	p.Identify(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Body.String(), "lavender question") {
		t.Error("landing page missing recent conversation")
	}
}

func TestDashboardUnknownConversationRedirects(t *testing.T) {
	p := NewPages(newTestStore(t, session.Config{}), log.NewNop())
	rec := httptest.NewRecorder()
	p.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard?conversation_id=ghost", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestDashboardRendersTranscript(t *testing.T) {
	store := newTestStore(t, session.Config{})
	seed := []session.Message{
		{ID: "m1", Sender: session.SenderUser, Text: "what is rosemary good for?", Timestamp: time.Now()},
		{ID: "m2", Sender: session.SenderAssistant, Text: "Rosemary supports memory.", Timestamp: time.Now()},
	}
	if err := store.Save("conv-9", seed, time.Time{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	p := NewPages(store, log.NewNop())
	rec := httptest.NewRecorder()
	p.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard?conversation_id=conv-9", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Rosemary supports memory.") {
		t.Error("transcript missing assistant message")
	}
	if !strings.Contains(body, "history-item active") {
		t.Error("sidebar not highlighting the open conversation")
	}
}

func TestSessionsList(t *testing.T) {
	store := newTestStore(t, session.Config{})
	seed := []session.Message{{ID: "m1", Sender: session.SenderUser, Text: "identify this plant please", Timestamp: time.Now()}}
	if err := store.Save("conv-a", seed, time.Time{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	s := NewSessions(store, log.NewNop())
	rec := httptest.NewRecorder()
	s.List(rec, httptest.NewRequest(http.MethodGet, "/sessions?active=conv-a", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "identify this plant please") {
		t.Error("sidebar missing session title")
	}
	if !strings.Contains(body, "history-item active") {
		t.Error("sidebar missing active highlight")
	}
}

func TestSessionsDelete(t *testing.T) {
	store := newTestStore(t, session.Config{})
	seed := []session.Message{{ID: "m1", Sender: session.SenderUser, Text: "bye", Timestamp: time.Now()}}
	if err := store.Save("conv-del", seed, time.Time{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	s := NewSessions(store, log.NewNop())
	req := httptest.NewRequest(http.MethodDelete, "/sessions/conv-del", nil)
	req.SetPathValue("id", "conv-del")
	rec := httptest.NewRecorder()
	s.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, err := store.Load("conv-del"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
	if len(store.Sessions()) != 0 {
		t.Error("index still lists the deleted session")
	}
}
