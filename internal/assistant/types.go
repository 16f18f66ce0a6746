// Package assistant is the HTTP client for the herb-identification
// backend.
//
// The backend is an external collaborator: this package consumes its
// chat contract (optional text, optional prior conversation id, optional
// embedded image in; a conversation id plus an identification payload
// and/or free-text payload out) and maps responses onto session
// messages. Nothing here designs the backend itself.
package assistant

import "errors"

// ErrBackend indicates the assistant backend rejected the request or
// was unreachable after retries. This is the one failure class a UI
// should surface to the user.
var ErrBackend = errors.New("assistant backend request failed")

// Response types returned by the backend.
const (
	ResponseTypeImage  = "image"
	ResponseTypeText   = "text"
	ResponseTypeHybrid = "hybrid"
)

// Request is one chat turn sent to the backend. Omitted fields are not
// serialized; the first turn of a conversation omits ConversationID.
type Request struct {
	TextInput      string `json:"text_input,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	ImageBase64    string `json:"image_base64,omitempty"`
}

// ImageMessage is the identification payload of a backend response.
type ImageMessage struct {
	Name           string   `json:"name"`
	ScientificName string   `json:"scientific_name"`
	LocalNames     []string `json:"local_names"`
	ImageURL       string   `json:"image_url"`
	Uses           []string `json:"uses"`
	Benefits       []string `json:"benefits"`
	Preparation    []string `json:"preparation"`
	Safety         []string `json:"safety"`
	TextContent    string   `json:"text_content"`
}

// TextMessage is the conversational payload of a backend response.
type TextMessage struct {
	TextContent     string   `json:"text_content"`
	Sources         []string `json:"sources"`
	SuggestedPlants []string `json:"suggested_plants"`
}

// Response is the backend's reply to a chat turn.
type Response struct {
	ConversationID string        `json:"conversation_id"`
	MessageID      string        `json:"message_id"`
	Timestamp      string        `json:"timestamp"`
	ResponseType   string        `json:"response_type"`
	ImageMessage   *ImageMessage `json:"image_message,omitempty"`
	TextMessage    *TextMessage  `json:"text_message,omitempty"`
}
