package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/fanout"
	"github.com/rexmirak/Chat-app/internal/registry"
	"github.com/rexmirak/Chat-app/internal/repository"
	"github.com/rexmirak/Chat-app/pkg/log"
)

// Automated-reply identity attributes. The identity is created lazily on
// first use and its display attributes are repaired in place when stale.
const (
	BotEmail       = "ai-bot@system.local"
	BotUsername    = "ai_bot"
	BotDisplayName = "CH Assistant"
	BotAvatarURL   = "/avatars/person.png"

	botPassword = "ai-bot"
)

// Orchestrator assembles bounded conversation history, invokes the
// generation provider, and relays the reply through the normal message
// delivery path. All failures stay local to the requesting connection.
type Orchestrator struct {
	store         repository.Store
	fanout        *fanout.Fanout
	generator     Generator // nil when no credentials are configured
	timeout       time.Duration
	historyWindow int
}

// NewOrchestrator creates an orchestrator. generator may be nil; every
// request then fails with a missing-credentials error scoped to the
// requester.
func NewOrchestrator(store repository.Store, f *fanout.Fanout, generator Generator, timeout time.Duration, historyWindow int) *Orchestrator {
	return &Orchestrator{
		store:         store,
		fanout:        f,
		generator:     generator,
		timeout:       timeout,
		historyWindow: historyWindow,
	}
}

// Enabled reports whether a generation provider is configured.
func (o *Orchestrator) Enabled() bool {
	return o.generator != nil
}

// EnsureBotUser resolves the automated-reply identity, creating it when
// absent and correcting stale display attributes in place.
func (o *Orchestrator) EnsureBotUser(ctx context.Context) (*domain.User, error) {
	existing, err := o.store.GetUserByEmail(ctx, BotEmail)
	if err == nil {
		if !existing.IsAIBot || existing.DisplayName != BotDisplayName || existing.AvatarURL != BotAvatarURL {
			if err := o.store.UpdateBotAttributes(ctx, existing.ID, BotDisplayName, BotAvatarURL); err != nil {
				return nil, err
			}
			existing.IsAIBot = true
			existing.DisplayName = BotDisplayName
			existing.AvatarURL = BotAvatarURL
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(botPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:           BotEmail,
		Username:        BotUsername,
		DisplayName:     BotDisplayName,
		AvatarURL:       BotAvatarURL,
		PasswordHash:    string(hash),
		IsAIBot:         true,
		NotificationsOn: true,
	}
	if err := o.store.CreateUser(ctx, user); err != nil {
		// Lost a creation race; the winner's record is authoritative.
		if created, raceErr := o.store.GetUserByEmail(ctx, BotEmail); raceErr == nil {
			return created, nil
		}
		return nil, err
	}
	return user, nil
}

// Reply runs the generation path for a trigger in a chat: resolve the bot,
// load the history window, call the provider, persist the reply, and fan it
// out to all participants. On any failure the requester alone receives a
// chat:ai:error event; nothing is persisted and no one else is notified.
//
// Reply is expected to run on its own goroutine; it never reports back to
// the caller.
func (o *Orchestrator) Reply(ctx context.Context, chatID, trigger string, requester registry.Connection) {
	l := log.Ctx(ctx)

	if o.generator == nil {
		o.sendError(requester, "Missing Gemini API key")
		return
	}

	bot, err := o.EnsureBotUser(ctx)
	if err != nil {
		l.Error().Err(err).Str(log.FieldChatID, chatID).Msg("bot user resolution failed")
		o.sendError(requester, "AI generation failed")
		return
	}

	recent, err := o.store.RecentMessages(ctx, chatID, o.historyWindow)
	if err != nil {
		l.Error().Err(err).Str(log.FieldChatID, chatID).Msg("history load failed")
		o.sendError(requester, "AI generation failed")
		return
	}
	// RecentMessages is reverse-chronological; the provider wants oldest first.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	history := BuildHistory(recent, trigger)

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := o.generator.Generate(genCtx, history, trigger)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldChatID, chatID).Msg("generation failed")
		o.sendError(requester, "AI generation failed")
		return
	}
	if strings.TrimSpace(text) == "" {
		o.sendError(requester, "AI generation failed")
		return
	}

	message := &domain.Message{
		ChatID:   chatID,
		SenderID: bot.ID,
		Type:     domain.MessageTypeAI,
		Content:  text,
	}
	if err := o.store.CreateMessage(ctx, message); err != nil {
		l.Error().Err(err).Str(log.FieldChatID, chatID).Msg("AI message persistence failed")
		o.sendError(requester, "AI generation failed")
		return
	}

	o.deliver(ctx, message, bot)
}

// deliver fans the persisted reply out to all chat participants and creates
// notification records, mirroring the normal message path. Notification
// failures are logged only.
func (o *Orchestrator) deliver(ctx context.Context, message *domain.Message, bot *domain.User) {
	l := log.Ctx(ctx)

	participants, err := o.store.Participants(ctx, message.ChatID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldChatID, message.ChatID).Msg("participant load failed, AI reply not fanned out")
		return
	}

	targets := make([]string, 0, len(participants))
	for _, p := range participants {
		targets = append(targets, p.UserID)
	}
	o.fanout.Deliver(targets, &domain.Event{Event: domain.EventChatMessage, Data: message})

	var notifications []domain.Notification
	for _, p := range participants {
		if p.UserID == bot.ID || !p.NotificationsOn {
			continue
		}
		metadata, _ := json.Marshal(map[string]string{"chatId": message.ChatID, "messageId": message.ID})
		notifications = append(notifications, domain.Notification{
			UserID:   p.UserID,
			Type:     domain.NotificationTypeMessage,
			Title:    bot.DisplayName,
			Body:     message.Content,
			Metadata: string(metadata),
		})
	}
	if err := o.store.CreateNotifications(ctx, notifications); err != nil {
		l.Warn().Err(err).Str(log.FieldChatID, message.ChatID).Msg("notification creation failed")
	}

	if err := o.store.TouchChat(ctx, message.ChatID); err != nil {
		l.Warn().Err(err).Str(log.FieldChatID, message.ChatID).Msg("chat touch failed")
	}
}

func (o *Orchestrator) sendError(requester registry.Connection, message string) {
	if requester == nil || !requester.Open() {
		return
	}
	if err := requester.SendEvent(domain.NewAIErrorEvent(message)); err != nil {
		l := log.L()
		l.Debug().Err(err).Msg("AI error event send failed")
	}
}
