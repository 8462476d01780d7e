package domain

import "time"

// Message types.
const (
	MessageTypeText = "TEXT"
	MessageTypeAI   = "AI"
)

// Notification types.
const (
	NotificationTypeMessage = "MESSAGE"
)

// Chat represents a conversation between two or more users.
type Chat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	IsGroup   bool      `json:"isGroup"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Participant associates a user with a chat, carrying the user fields the
// relay needs for fanout and notification decisions.
type Participant struct {
	ChatID          string `json:"chatId"`
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName,omitempty"`
	NotificationsOn bool   `json:"notificationsOn"`
	IsAIBot         bool   `json:"isAiBot"`
}

// CreateChatRequest is the payload for creating a chat. The caller is added
// as a participant implicitly.
type CreateChatRequest struct {
	Name           string   `json:"name"`
	IsGroup        bool     `json:"isGroup"`
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1"`
}

// Attachment is a media record attached to a message.
type Attachment struct {
	ID         string `json:"id"`
	MessageID  string `json:"messageId"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	Filename   string `json:"filename,omitempty"`
	SizeBytes  int64  `json:"sizeBytes,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// Message is a persisted chat message, including the sender projection and
// attachments as fanned out to clients.
type Message struct {
	ID          string       `json:"id"`
	ChatID      string       `json:"chatId"`
	SenderID    string       `json:"senderId"`
	Type        string       `json:"type"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"createdAt"`
	Attachments []Attachment `json:"attachments"`
	Sender      *UserSummary `json:"sender,omitempty"`
}

// Notification is a stored notification record for a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Metadata  string    `json:"metadata,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
