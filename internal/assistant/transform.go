package assistant

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyryl1/herb-wise-frontend/internal/session"
)

// defaultIdentificationText captions an identification result that came
// back without its own text.
const defaultIdentificationText = "I've identified this herb. Click the card below for details."

// ToMessage maps a backend response onto a session message.
//
// The identification payload's representative image is NOT placed on
// the message: remote references must never reach storage. The remote
// URL is returned separately so the caller can backfill a data URI
// asynchronously (see Client.EmbedImage) and re-save.
func ToMessage(resp *Response, now time.Time) (session.Message, string) {
	msg := session.Message{
		ID:        resp.MessageID,
		Sender:    session.SenderAssistant,
		Timestamp: now,
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if resp.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, resp.Timestamp); err == nil {
			msg.Timestamp = ts
		}
	}

	var remoteImage string

	switch resp.ResponseType {
	case ResponseTypeImage:
		if resp.ImageMessage != nil {
			msg.Text = resp.ImageMessage.TextContent
			if msg.Text == "" {
				msg.Text = defaultIdentificationText
			}
			msg.HerbInfo, remoteImage = herbInfoFrom(resp.ImageMessage)
		}

	case ResponseTypeText:
		if resp.TextMessage != nil {
			msg.Text = resp.TextMessage.TextContent
		}

	case ResponseTypeHybrid:
		if resp.ImageMessage != nil {
			msg.HerbInfo, remoteImage = herbInfoFrom(resp.ImageMessage)
		}
		if resp.TextMessage != nil {
			msg.Text = resp.TextMessage.TextContent
		}
		if msg.Text == "" && msg.HerbInfo != nil {
			msg.Text = defaultIdentificationText
		}
	}

	return msg, remoteImage
}

func herbInfoFrom(im *ImageMessage) (*session.HerbInfo, string) {
	info := &session.HerbInfo{
		Name:           im.Name,
		ScientificName: im.ScientificName,
		LocalNames:     im.LocalNames,
		Uses:           im.Uses,
		Benefits:       im.Benefits,
		Preparation:    im.Preparation,
		Safety:         im.Safety,
	}
	return info, im.ImageURL
}
