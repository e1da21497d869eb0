package types

import (
	"html/template"

	"council-assistant-backend/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreatePanelResponse struct {
	PanelID         string `json:"panelId"`
	SessionID       string `json:"sessionId"`
	HasConversation bool   `json:"hasConversation"`
}

type MessageRequest struct {
	Message string `json:"message"`
}

type SuggestionRequest struct {
	Query string `json:"query"`
}

type CloseRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Event is one change to the panel's visible surface, in the order it
// happened.
type Event struct {
	Type            string        `json:"type"`
	Entry           *store.Entry  `json:"entry,omitempty"`
	HTML            template.HTML `json:"html,omitempty"`
	HasConversation *bool         `json:"hasConversation,omitempty"`
}

// Event types.
const (
	EventBubble          = "bubble"
	EventTyping          = "typing"
	EventTypingDone      = "typing_done"
	EventHasConversation = "has_conversation"
	EventFocus           = "focus"
)

type PanelResponse struct {
	PanelID      string  `json:"panelId"`
	State        string  `json:"state"`
	Conversation string  `json:"conversation"`
	Events       []Event `json:"events"`
}

type ExchangeResponse struct {
	PanelResponse
	User  store.Entry `json:"user"`
	Reply store.Entry `json:"reply"`
}

type TranscriptResponse struct {
	SessionID string          `json:"sessionId"`
	Entries   []store.Entry   `json:"entries"`
	HTML      []template.HTML `json:"html"`
}
