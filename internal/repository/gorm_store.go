package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rexmirak/Chat-app/internal/domain"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateUser creates a new user.
func (s *GormStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	model := domain.UserToModel(user)
	result := s.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return s.handleError(result.Error)
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	result := s.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetUserByEmail retrieves a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model domain.UserModel
	result := s.db.WithContext(ctx).First(&model, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateBotAttributes repairs the automated identity's display attributes in
// place and marks it as a bot.
func (s *GormStore) UpdateBotAttributes(ctx context.Context, id, displayName, avatarURL string) error {
	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_ai_bot":    true,
			"display_name": displayName,
			"avatar_url":   avatarURL,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastSeen persists the user's last-seen timestamp.
func (s *GormStore) UpdateLastSeen(ctx context.Context, userID string, lastSeenAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		Update("last_seen_at", lastSeenAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateChat creates a chat together with its participant rows.
func (s *GormStore) CreateChat(ctx context.Context, chat *domain.Chat, participantIDs []string) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &domain.ChatModel{
			ID:      chat.ID,
			Name:    chat.Name,
			IsGroup: chat.IsGroup,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		chat.CreatedAt = model.CreatedAt
		chat.UpdatedAt = model.UpdatedAt

		for _, userID := range participantIDs {
			p := &domain.ChatParticipantModel{ChatID: chat.ID, UserID: userID}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ChatsForUser lists the chats the user participates in, most recently
// active first.
func (s *GormStore) ChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	var models []domain.ChatModel
	result := s.db.WithContext(ctx).
		Joins("JOIN chat_participants ON chat_participants.chat_id = chats.id").
		Where("chat_participants.user_id = ?", userID).
		Order("chats.updated_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	chats := make([]domain.Chat, 0, len(models))
	for i := range models {
		chats = append(chats, *models[i].ToDomain())
	}
	return chats, nil
}

// DeleteChat removes a chat and all its dependent records in one
// transaction.
func (s *GormStore) DeleteChat(ctx context.Context, chatID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.ChatModel
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return err
		}

		if err := tx.Where("message_id IN (?)",
			tx.Model(&domain.MessageModel{}).Select("id").Where("chat_id = ?", chatID),
		).Delete(&domain.AttachmentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.MessageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.ChatParticipantModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ChatModel{}, "id = ?", chatID).Error
	})
}

// TouchChat bumps the chat's last-activity timestamp.
func (s *GormStore) TouchChat(ctx context.Context, chatID string) error {
	return s.db.WithContext(ctx).Model(&domain.ChatModel{}).
		Where("id = ?", chatID).
		Update("updated_at", time.Now()).Error
}

// IsParticipant reports whether the user belongs to the chat.
func (s *GormStore) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&domain.ChatParticipantModel{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Participants returns the chat's participants joined with the user fields
// the relay needs for fanout and notification decisions.
func (s *GormStore) Participants(ctx context.Context, chatID string) ([]domain.Participant, error) {
	var rows []struct {
		ChatID          string
		UserID          string
		DisplayName     string
		NotificationsOn bool
		IsAIBot         bool `gorm:"column:is_ai_bot"`
	}
	result := s.db.WithContext(ctx).Table("chat_participants").
		Select("chat_participants.chat_id, chat_participants.user_id, users.display_name, users.notifications_on, users.is_ai_bot").
		Joins("JOIN users ON users.id = chat_participants.user_id").
		Where("chat_participants.chat_id = ?", chatID).
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	participants := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, domain.Participant{
			ChatID:          row.ChatID,
			UserID:          row.UserID,
			DisplayName:     row.DisplayName,
			NotificationsOn: row.NotificationsOn,
			IsAIBot:         row.IsAIBot,
		})
	}
	return participants, nil
}

// CreateMessage persists a message with its attachments and fills in the
// generated ID, timestamp, and sender projection.
func (s *GormStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Type == "" {
		message.Type = domain.MessageTypeText
	}

	model := &domain.MessageModel{
		ID:       message.ID,
		ChatID:   message.ChatID,
		SenderID: message.SenderID,
		Type:     message.Type,
		Content:  message.Content,
	}
	for i := range message.Attachments {
		a := &message.Attachments[i]
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		a.MessageID = message.ID
		model.Attachments = append(model.Attachments, domain.AttachmentModel{
			ID:         a.ID,
			MessageID:  a.MessageID,
			Type:       a.Type,
			URL:        a.URL,
			Filename:   a.Filename,
			SizeBytes:  a.SizeBytes,
			MimeType:   a.MimeType,
			Width:      a.Width,
			Height:     a.Height,
			DurationMs: a.DurationMs,
		})
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	message.CreatedAt = model.CreatedAt

	sender, err := s.GetUserByID(ctx, message.SenderID)
	if err != nil {
		return err
	}
	message.Sender = sender.Summary()
	return nil
}

// RecentMessages returns the most recent messages of a chat in
// reverse-chronological order, with sender projections.
func (s *GormStore) RecentMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	var models []domain.MessageModel
	result := s.db.WithContext(ctx).
		Preload("Attachments").
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return s.attachSenders(ctx, models)
}

// ChatHistory returns up to limit messages of a chat in chronological
// order, with attachments and sender projections.
func (s *GormStore) ChatHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	messages, err := s.RecentMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *GormStore) attachSenders(ctx context.Context, models []domain.MessageModel) ([]domain.Message, error) {
	senderIDs := make([]string, 0, len(models))
	seen := make(map[string]bool)
	for i := range models {
		if !seen[models[i].SenderID] {
			seen[models[i].SenderID] = true
			senderIDs = append(senderIDs, models[i].SenderID)
		}
	}

	senders := make(map[string]*domain.UserSummary, len(senderIDs))
	if len(senderIDs) > 0 {
		var users []domain.UserModel
		if err := s.db.WithContext(ctx).Where("id IN ?", senderIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for i := range users {
			senders[users[i].ID] = users[i].ToDomain().Summary()
		}
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		msg := models[i].ToDomain()
		msg.Sender = senders[models[i].SenderID]
		messages = append(messages, *msg)
	}
	return messages, nil
}

// CreateNotifications inserts notification records in one batch.
func (s *GormStore) CreateNotifications(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	models := make([]domain.NotificationModel, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		models = append(models, domain.NotificationModel{
			ID:       n.ID,
			UserID:   n.UserID,
			Type:     n.Type,
			Title:    n.Title,
			Body:     n.Body,
			Metadata: n.Metadata,
			Read:     n.Read,
		})
	}
	return s.db.WithContext(ctx).Create(&models).Error
}

// NotificationsForUser lists the user's notifications, newest first.
func (s *GormStore) NotificationsForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	var models []domain.NotificationModel
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *models[i].ToDomain())
	}
	return notifications, nil
}

// handleError converts database-specific errors to domain errors.
func (s *GormStore) handleError(err error) error {
	errStr := err.Error()

	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry") {
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
	}

	return err
}
