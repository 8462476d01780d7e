package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rexmirak/Chat-app/internal/ai"
	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/fanout"
	"github.com/rexmirak/Chat-app/internal/registry"
	"github.com/rexmirak/Chat-app/internal/repository"
	"github.com/rexmirak/Chat-app/pkg/log"
)

type relayService struct {
	store        repository.Store
	fanout       *fanout.Fanout
	orchestrator *ai.Orchestrator
}

// NewRelay creates the relay protocol handler.
func NewRelay(store repository.Store, f *fanout.Fanout, orchestrator *ai.Orchestrator) Relay {
	return &relayService{
		store:        store,
		fanout:       f,
		orchestrator: orchestrator,
	}
}

// HandleInbound parses one raw frame and dispatches it. Malformed frames
// are logged and dropped; there is no structured way to address an error
// back for an envelope that never parsed.
func (s *relayService) HandleInbound(ctx context.Context, conn registry.Connection, senderID string, raw []byte) {
	l := log.Ctx(ctx)

	event, err := domain.ParseInbound(raw)
	if err != nil {
		l.Debug().Str(log.FieldUserID, senderID).Msg("malformed inbound event dropped")
		return
	}

	switch event.Kind {
	case domain.EventChatMessage:
		err = s.HandleChatMessage(ctx, conn, senderID, event.Message)
	case domain.EventChatAI:
		err = s.HandleAIPrompt(ctx, conn, senderID, event.Prompt)
	case domain.EventChatTyping:
		err = s.HandleTyping(ctx, conn, senderID, event.Typing)
	}
	if err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, senderID).Str(log.FieldEvent, event.Kind).Msg("inbound event failed")
	}
}

// HandleChatMessage validates membership, persists the message, fans it out
// to all participants, creates notifications, and triggers the automated
// reply when the chat has a bot participant.
func (s *relayService) HandleChatMessage(ctx context.Context, conn registry.Connection, senderID string, payload *domain.ChatMessagePayload) error {
	l := log.Ctx(ctx)

	member, err := s.store.IsParticipant(ctx, payload.ChatID, senderID)
	if err != nil {
		s.sendError(conn, "Internal server error")
		return err
	}
	if !member {
		s.sendError(conn, "Not a member of this chat")
		return nil
	}

	message := &domain.Message{
		ChatID:   payload.ChatID,
		SenderID: senderID,
		Type:     payload.Type,
		Content:  payload.Content,
	}
	for _, a := range payload.Attachments {
		message.Attachments = append(message.Attachments, domain.Attachment{
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

	// Durability point: nothing is fanned out unless this write succeeds.
	if err := s.store.CreateMessage(ctx, message); err != nil {
		s.sendError(conn, "Internal server error")
		return err
	}

	participants, err := s.store.Participants(ctx, payload.ChatID)
	if err != nil {
		s.sendError(conn, "Internal server error")
		return err
	}

	targets := make([]string, 0, len(participants))
	for _, p := range participants {
		targets = append(targets, p.UserID)
	}
	s.fanout.Deliver(targets, &domain.Event{Event: domain.EventChatMessage, Data: message})

	s.createNotifications(ctx, message, participants, senderID)

	if err := s.store.TouchChat(ctx, payload.ChatID); err != nil {
		l.Warn().Err(err).Str(log.FieldChatID, payload.ChatID).Msg("chat touch failed")
	}

	s.maybeTriggerAutoReply(ctx, conn, senderID, payload, participants)
	return nil
}

// HandleTyping fans a typing indicator out to all participants except the
// sender. Indicator loss is acceptable; errors are logged, never surfaced.
func (s *relayService) HandleTyping(ctx context.Context, conn registry.Connection, senderID string, payload *domain.TypingPayload) error {
	participants, err := s.store.Participants(ctx, payload.ChatID)
	if err != nil {
		return err
	}

	targets := make([]string, 0, len(participants))
	for _, p := range participants {
		targets = append(targets, p.UserID)
	}

	s.fanout.DeliverExcept(targets, &domain.Event{
		Event: domain.EventChatTyping,
		Data: domain.TypingBroadcast{
			ChatID:   payload.ChatID,
			UserID:   senderID,
			IsTyping: payload.IsTyping,
		},
	}, senderID)
	return nil
}

// HandleAIPrompt runs an explicit user-requested AI turn. Unlike the
// automatic trigger it does not require a bot participant in the chat.
func (s *relayService) HandleAIPrompt(ctx context.Context, conn registry.Connection, senderID string, payload *domain.AIPromptPayload) error {
	if payload.ChatID == "" || payload.Prompt == "" {
		s.sendAIError(conn, "Missing chatId or prompt")
		return nil
	}
	if !s.orchestrator.Enabled() {
		s.sendAIError(conn, "Missing Gemini API key")
		return nil
	}

	member, err := s.store.IsParticipant(ctx, payload.ChatID, senderID)
	if err != nil {
		s.sendAIError(conn, "AI generation failed")
		return err
	}
	if !member {
		s.sendAIError(conn, "Not a member of this chat")
		return nil
	}

	go s.orchestrator.Reply(detach(ctx), payload.ChatID, payload.Prompt, conn)
	return nil
}

// createNotifications records a notification for every participant other
// than the sender who has notifications enabled. Failure never rolls back
// the already-committed message.
func (s *relayService) createNotifications(ctx context.Context, message *domain.Message, participants []domain.Participant, senderID string) {
	l := log.Ctx(ctx)

	title := "New message"
	if message.Sender != nil && message.Sender.DisplayName != "" {
		title = message.Sender.DisplayName
	}

	body := message.Content
	if body == "" {
		if len(message.Attachments) > 0 {
			body = "Sent an attachment"
		} else {
			body = "Sent a message"
		}
	}

	var notifications []domain.Notification
	for _, p := range participants {
		if p.UserID == senderID || !p.NotificationsOn {
			continue
		}
		metadata, _ := json.Marshal(map[string]string{"chatId": message.ChatID, "messageId": message.ID})
		notifications = append(notifications, domain.Notification{
			UserID:   p.UserID,
			Type:     domain.NotificationTypeMessage,
			Title:    title,
			Body:     body,
			Metadata: string(metadata),
		})
	}

	if err := s.store.CreateNotifications(ctx, notifications); err != nil {
		l.Warn().Err(err).Str(log.FieldChatID, message.ChatID).Msg("notification creation failed")
	}
}

// maybeTriggerAutoReply starts the generation branch when the chat has a
// bot participant, the sender is not the bot, and the message is plain
// non-empty text. The branch runs on its own goroutine so it never blocks
// protocol handling for this or other connections.
func (s *relayService) maybeTriggerAutoReply(ctx context.Context, conn registry.Connection, senderID string, payload *domain.ChatMessagePayload, participants []domain.Participant) {
	var bot *domain.Participant
	for i := range participants {
		if participants[i].IsAIBot {
			bot = &participants[i]
			break
		}
	}

	if bot == nil || bot.UserID == senderID {
		return
	}
	if payload.Type != domain.MessageTypeText || strings.TrimSpace(payload.Content) == "" {
		return
	}

	if !s.orchestrator.Enabled() {
		s.sendAIError(conn, "Missing Gemini API key")
		return
	}

	go s.orchestrator.Reply(detach(ctx), payload.ChatID, payload.Content, conn)
}

func (s *relayService) sendError(conn registry.Connection, message string) {
	if err := conn.SendEvent(domain.NewErrorEvent(message)); err != nil {
		l := log.L()
		l.Debug().Err(err).Msg("error event send failed")
	}
}

func (s *relayService) sendAIError(conn registry.Connection, message string) {
	if err := conn.SendEvent(domain.NewAIErrorEvent(message)); err != nil {
		l := log.L()
		l.Debug().Err(err).Msg("AI error event send failed")
	}
}

// detach keeps the request logger but drops cancellation: a connection
// closing mid-generation must not abort the pending provider call or write.
func detach(ctx context.Context) context.Context {
	return log.WithLogger(context.Background(), log.Ctx(ctx))
}
