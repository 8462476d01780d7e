package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rexmirak/Chat-app/internal/domain"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrChatNotFound   = errors.New("chat not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// Store is the storage collaborator consumed by the relay and the REST
// surface. Implementations must be safe for concurrent use.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateBotAttributes(ctx context.Context, id, displayName, avatarURL string) error
	UpdateLastSeen(ctx context.Context, userID string, lastSeenAt time.Time) error

	// Chats
	CreateChat(ctx context.Context, chat *domain.Chat, participantIDs []string) error
	ChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	TouchChat(ctx context.Context, chatID string) error

	// Participants
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	Participants(ctx context.Context, chatID string) ([]domain.Participant, error)

	// Messages
	CreateMessage(ctx context.Context, message *domain.Message) error
	RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
	ChatHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error)

	// Notifications
	CreateNotifications(ctx context.Context, notifications []domain.Notification) error
	NotificationsForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}
