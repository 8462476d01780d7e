package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Inbound wire events (client -> relay).
const (
	EventChatMessage = "chat:message"
	EventChatAI      = "chat:ai"
	EventChatTyping  = "chat:typing"
)

// Outbound wire events (relay -> client). EventChatMessage and
// EventChatTyping are reused on the outbound side.
const (
	EventPresenceSnapshot = "presence:snapshot"
	EventUserStatus       = "user:status"
	EventError            = "error"
	EventChatAIError      = "chat:ai:error"
)

// Presence statuses.
const (
	StatusOnline  = "ONLINE"
	StatusOffline = "OFFLINE"
)

// ErrMalformedEvent is returned for payloads that do not match one of the
// known inbound event shapes.
var ErrMalformedEvent = errors.New("malformed inbound event")

// Event is the tagged envelope every wire event travels in.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewErrorEvent builds a scoped error event for the originating connection.
func NewErrorEvent(message string) *Event {
	return &Event{Event: EventError, Data: ErrorPayload{Message: message}}
}

// NewAIErrorEvent builds a generation error event for the requesting connection.
func NewAIErrorEvent(message string) *Event {
	return &Event{Event: EventChatAIError, Data: ErrorPayload{Message: message}}
}

// ErrorPayload carries a scoped error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// AttachmentInput is the inbound attachment description on chat:message.
type AttachmentInput struct {
	Type       string `json:"type"`
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	SizeBytes  int64  `json:"sizeBytes"`
	MimeType   string `json:"mimeType"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DurationMs int    `json:"durationMs"`
}

// ChatMessagePayload is the chat:message inbound payload.
type ChatMessagePayload struct {
	ChatID      string            `json:"chatId"`
	Type        string            `json:"type"`
	Content     string            `json:"content"`
	Attachments []AttachmentInput `json:"attachments"`
}

// AIPromptPayload is the chat:ai inbound payload.
type AIPromptPayload struct {
	ChatID string `json:"chatId"`
	Prompt string `json:"prompt"`
}

// TypingPayload is the chat:typing inbound payload.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// TypingBroadcast is the chat:typing outbound payload.
type TypingBroadcast struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// PresenceEntry describes one user's presence on the wire. LastSeenAt is
// null while the user is online.
type PresenceEntry struct {
	UserID     string     `json:"userId"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"lastSeenAt"`
}

// InboundEvent is the closed tagged union of the three accepted inbound
// events. Exactly one of the payload fields is non-nil, matching Kind.
type InboundEvent struct {
	Kind    string
	Message *ChatMessagePayload
	Prompt  *AIPromptPayload
	Typing  *TypingPayload
}

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseInbound decodes a raw frame into one of the known inbound event
// shapes. Anything else (invalid JSON, unknown event name, non-object
// payload) yields ErrMalformedEvent.
func ParseInbound(raw []byte) (*InboundEvent, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedEvent
	}

	switch env.Event {
	case EventChatMessage:
		var p ChatMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, ErrMalformedEvent
		}
		if p.Type == "" {
			p.Type = MessageTypeText
		}
		return &InboundEvent{Kind: EventChatMessage, Message: &p}, nil

	case EventChatAI:
		var p AIPromptPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, ErrMalformedEvent
		}
		return &InboundEvent{Kind: EventChatAI, Prompt: &p}, nil

	case EventChatTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, ErrMalformedEvent
		}
		return &InboundEvent{Kind: EventChatTyping, Typing: &p}, nil

	default:
		return nil, ErrMalformedEvent
	}
}
