package handlers

import (
	"net/http"
	"time"

	"github.com/cyryl1/herb-wise-frontend/internal/log"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
)

// sidebarData drives the sidebar partial.
type sidebarData struct {
	ActiveID string
	Groups   []sidebarGroup
	HasAny   bool
}

type sidebarGroup struct {
	Label string
	Items []session.Summary
}

func buildSidebar(store *session.Store, activeID string) sidebarData {
	groups := session.GroupByDate(store.Sessions(), time.Now())
	data := sidebarData{
		ActiveID: activeID,
		Groups: []sidebarGroup{
			{Label: "Today", Items: groups.Today},
			{Label: "Yesterday", Items: groups.Yesterday},
			{Label: "Previous 7 days", Items: groups.Previous7Days},
			{Label: "Older", Items: groups.Older},
		},
	}
	for _, g := range data.Groups {
		if len(g.Items) > 0 {
			data.HasAny = true
			break
		}
	}
	return data
}

// Pages serves the HTML entry points.
type Pages struct {
	store  *session.Store
	logger log.Logger
}

func NewPages(store *session.Store, logger log.Logger) *Pages {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pages{store: store, logger: logger}
}

// maxRecent caps the resume list on the landing page.
const maxRecent = 8

type identifyData struct {
	Recent []session.Summary
}

// Identify serves the landing page where a new identification starts.
// It also lists recent conversations so a visitor can resume one.
func (p *Pages) Identify(w http.ResponseWriter, r *http.Request) {
	data := identifyData{Recent: p.store.Sessions()}
	if len(data.Recent) > maxRecent {
		data.Recent = data.Recent[:maxRecent]
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render(w, "identify", data); err != nil {
		p.logger.Error("render identify page", "error", err)
	}
}

type dashboardData struct {
	ConversationID string
	Messages       []session.Message
	Sidebar        sidebarData
}

// Dashboard serves the conversation view. A missing, stale, or unknown
// conversation id redirects back to the entry page so the visitor
// starts over.
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("conversation_id")

	record, status := p.store.Enter(id, nil)
	if !status.Usable() {
		p.logger.Debug("conversation not restorable",
			"conversation_id", id,
			"status", string(status),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := dashboardData{
		ConversationID: id,
		Messages:       record.Messages,
		Sidebar:        buildSidebar(p.store, id),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render(w, "dashboard", data); err != nil {
		p.logger.Error("render dashboard page", "error", err)
	}
}
