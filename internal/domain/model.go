package domain

import (
	"time"

	"gorm.io/gorm"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID              string         `gorm:"type:varchar(36);primaryKey"`
	Email           string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username        string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	DisplayName     string         `gorm:"type:varchar(100)"`
	AvatarURL       string         `gorm:"type:varchar(255)"`
	PasswordHash    string         `gorm:"type:varchar(255);not null"`
	IsAIBot         bool           `gorm:"column:is_ai_bot;default:false"`
	NotificationsOn bool           `gorm:"default:true"`
	LastSeenAt      *time.Time
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:              m.ID,
		Email:           m.Email,
		Username:        m.Username,
		DisplayName:     m.DisplayName,
		AvatarURL:       m.AvatarURL,
		PasswordHash:    m.PasswordHash,
		IsAIBot:         m.IsAIBot,
		NotificationsOn: m.NotificationsOn,
		LastSeenAt:      m.LastSeenAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		AvatarURL:       u.AvatarURL,
		PasswordHash:    u.PasswordHash,
		IsAIBot:         u.IsAIBot,
		NotificationsOn: u.NotificationsOn,
		LastSeenAt:      u.LastSeenAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// ChatModel is the GORM model for the chats table.
type ChatModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Name      string    `gorm:"type:varchar(100)"`
	IsGroup   bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ChatModel) TableName() string {
	return "chats"
}

func (m *ChatModel) ToDomain() *Chat {
	return &Chat{
		ID:        m.ID,
		Name:      m.Name,
		IsGroup:   m.IsGroup,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ChatParticipantModel is the GORM model for the chat_participants table.
type ChatParticipantModel struct {
	ChatID    string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatParticipantModel) TableName() string {
	return "chat_participants"
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID          string            `gorm:"type:varchar(36);primaryKey"`
	ChatID      string            `gorm:"type:varchar(36);index;not null"`
	SenderID    string            `gorm:"type:varchar(36);index;not null"`
	Type        string            `gorm:"type:varchar(16);default:TEXT"`
	Content     string            `gorm:"type:text"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index"`
	Attachments []AttachmentModel `gorm:"foreignKey:MessageID"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) ToDomain() *Message {
	attachments := make([]Attachment, 0, len(m.Attachments))
	for i := range m.Attachments {
		attachments = append(attachments, *m.Attachments[i].ToDomain())
	}
	return &Message{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		Type:        m.Type,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		Attachments: attachments,
	}
}

// AttachmentModel is the GORM model for the attachments table.
type AttachmentModel struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	MessageID  string `gorm:"type:varchar(36);index;not null"`
	Type       string `gorm:"type:varchar(16)"`
	URL        string `gorm:"type:varchar(512)"`
	Filename   string `gorm:"type:varchar(255)"`
	SizeBytes  int64
	MimeType   string `gorm:"type:varchar(100)"`
	Width      int
	Height     int
	DurationMs int
}

func (AttachmentModel) TableName() string {
	return "attachments"
}

func (m *AttachmentModel) ToDomain() *Attachment {
	return &Attachment{
		ID:         m.ID,
		MessageID:  m.MessageID,
		Type:       m.Type,
		URL:        m.URL,
		Filename:   m.Filename,
		SizeBytes:  m.SizeBytes,
		MimeType:   m.MimeType,
		Width:      m.Width,
		Height:     m.Height,
		DurationMs: m.DurationMs,
	}
}

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);index;not null"`
	Type      string    `gorm:"type:varchar(32)"`
	Title     string    `gorm:"type:varchar(255)"`
	Body      string    `gorm:"type:text"`
	Metadata  string    `gorm:"type:text"`
	Read      bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

func (m *NotificationModel) ToDomain() *Notification {
	return &Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Type:      m.Type,
		Title:     m.Title,
		Body:      m.Body,
		Metadata:  m.Metadata,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}
