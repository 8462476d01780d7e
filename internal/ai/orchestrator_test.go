package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/fanout"
	"github.com/rexmirak/Chat-app/internal/registry"
	"github.com/rexmirak/Chat-app/internal/repository"
)

type fakeConn struct {
	mu   sync.Mutex
	open bool
	sent []*domain.Event
}

func newFakeConn() *fakeConn { return &fakeConn{open: true} }

func (c *fakeConn) SendEvent(event *domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, event)
	return nil
}

func (c *fakeConn) Open() bool { return c.open }

func (c *fakeConn) events(name string) []*domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.Event
	for _, e := range c.sent {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeStore struct {
	mu            sync.Mutex
	usersByEmail  map[string]*domain.User
	recent        []domain.Message
	participants  []domain.Participant
	messages      []*domain.Message
	notifications []domain.Notification
	touched       int
	repaired      int
}

func newStore() *fakeStore {
	return &fakeStore{usersByEmail: make(map[string]*domain.User)}
}

func (s *fakeStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersByEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}
	user.ID = "user-" + user.Username
	s.usersByEmail[user.Email] = user
	return nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeStore) UpdateBotAttributes(_ context.Context, id, displayName, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repaired++
	for _, u := range s.usersByEmail {
		if u.ID == id {
			u.IsAIBot = true
			u.DisplayName = displayName
			u.AvatarURL = avatarURL
		}
	}
	return nil
}

func (s *fakeStore) RecentMessages(context.Context, string, int) ([]domain.Message, error) {
	return append([]domain.Message(nil), s.recent...), nil
}

func (s *fakeStore) Participants(context.Context, string) ([]domain.Participant, error) {
	return s.participants, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	message.ID = "m-ai"
	message.CreatedAt = time.Now().UTC()
	s.messages = append(s.messages, message)
	return nil
}

func (s *fakeStore) CreateNotifications(_ context.Context, notifications []domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notifications...)
	return nil
}

func (s *fakeStore) TouchChat(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched++
	return nil
}

func (s *fakeStore) GetUserByID(context.Context, string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (s *fakeStore) IsParticipant(context.Context, string, string) (bool, error) {
	return true, nil
}
func (s *fakeStore) UpdateLastSeen(context.Context, string, time.Time) error     { return nil }
func (s *fakeStore) CreateChat(context.Context, *domain.Chat, []string) error    { return nil }
func (s *fakeStore) ChatsForUser(context.Context, string) ([]domain.Chat, error) { return nil, nil }
func (s *fakeStore) DeleteChat(context.Context, string) error                    { return nil }
func (s *fakeStore) ChatHistory(context.Context, string, int) ([]domain.Message, error) {
	return nil, nil
}
func (s *fakeStore) NotificationsForUser(context.Context, string, int) ([]domain.Notification, error) {
	return nil, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	history []Turn
	prompt  string
	text    string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, history []Turn, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = history
	g.prompt = prompt
	return g.text, g.err
}

func wire(store *fakeStore, gen Generator) (*Orchestrator, *registry.Registry) {
	reg := registry.New()
	return NewOrchestrator(store, fanout.New(reg), gen, time.Second, 12), reg
}

func TestEnsureBotUserCreatesIdentity(t *testing.T) {
	store := newStore()
	o, _ := wire(store, &fakeGenerator{text: "ok"})

	bot, err := o.EnsureBotUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bot.Email != BotEmail || bot.Username != BotUsername {
		t.Errorf("unexpected identity: %+v", bot)
	}
	if !bot.IsAIBot || bot.DisplayName != BotDisplayName || bot.AvatarURL != BotAvatarURL {
		t.Errorf("unexpected attributes: %+v", bot)
	}
	if bot.PasswordHash == "" {
		t.Error("expected a password hash")
	}
}

func TestEnsureBotUserRepairsStaleAttributes(t *testing.T) {
	store := newStore()
	store.usersByEmail[BotEmail] = &domain.User{
		ID: "bot-1", Email: BotEmail, Username: BotUsername,
		DisplayName: "Old Name", IsAIBot: false,
	}
	o, _ := wire(store, &fakeGenerator{text: "ok"})

	bot, err := o.EnsureBotUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.repaired != 1 {
		t.Errorf("expected 1 repair, got %d", store.repaired)
	}
	if !bot.IsAIBot || bot.DisplayName != BotDisplayName || bot.AvatarURL != BotAvatarURL {
		t.Errorf("expected repaired attributes, got %+v", bot)
	}

	// A second call finds the record current and leaves it alone.
	if _, err := o.EnsureBotUser(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.repaired != 1 {
		t.Errorf("expected no further repair, got %d", store.repaired)
	}
}

func TestReplyPersistsAndFansOut(t *testing.T) {
	store := newStore()
	gen := &fakeGenerator{text: "generated reply"}
	o, reg := wire(store, gen)

	store.recent = []domain.Message{
		// Reverse-chronological, as the storage layer returns it.
		{Content: "hello bot", Sender: &domain.UserSummary{ID: "u1"}},
		{Content: "earlier", Sender: &domain.UserSummary{ID: "u1"}},
	}

	requester := newFakeConn()
	other := newFakeConn()
	reg.Register("u1", requester)
	reg.Register("u2", other)

	o.Reply(context.Background(), "c1", "hello bot", requester)

	bot := store.usersByEmail[BotEmail]
	if len(store.messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(store.messages))
	}
	msg := store.messages[0]
	if msg.Type != domain.MessageTypeAI || msg.Content != "generated reply" || msg.SenderID != bot.ID {
		t.Errorf("unexpected persisted message: %+v", msg)
	}

	// The echoed trigger is stripped from the window; older turns survive.
	if len(gen.history) != 1 || gen.history[0].Text != "earlier" {
		t.Errorf("unexpected history window: %+v", gen.history)
	}
	if gen.prompt != "hello bot" {
		t.Errorf("unexpected prompt: %q", gen.prompt)
	}

	if got := len(requester.events(domain.EventChatAIError)); got != 0 {
		t.Errorf("expected no AI error on success, got %d", got)
	}
}

func TestReplyDeliversToParticipantsAndNotifies(t *testing.T) {
	store := newStore()
	o, reg := wire(store, &fakeGenerator{text: "answer"})

	requester := newFakeConn()
	other := newFakeConn()
	reg.Register("u1", requester)
	reg.Register("u2", other)

	// Resolve the bot up front so the participant row can reference it.
	botUser, err := o.EnsureBotUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.participants = []domain.Participant{
		{ChatID: "c1", UserID: "u1", NotificationsOn: true},
		{ChatID: "c1", UserID: "u2", NotificationsOn: false},
		{ChatID: "c1", UserID: botUser.ID, NotificationsOn: true, IsAIBot: true},
	}

	o.Reply(context.Background(), "c1", "question", requester)

	for _, conn := range []*fakeConn{requester, other} {
		if got := len(conn.events(domain.EventChatMessage)); got != 1 {
			t.Errorf("expected 1 chat:message delivery, got %d", got)
		}
	}

	// Only u1: u2 muted, bot excluded.
	if len(store.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.notifications))
	}
	n := store.notifications[0]
	if n.UserID != "u1" || n.Title != BotDisplayName || n.Body != "answer" {
		t.Errorf("unexpected notification: %+v", n)
	}
	if store.touched != 1 {
		t.Errorf("expected chat touch, got %d", store.touched)
	}
}

func TestReplyGenerationFailure(t *testing.T) {
	store := newStore()
	o, reg := wire(store, &fakeGenerator{err: errors.New("quota exceeded")})

	requester := newFakeConn()
	other := newFakeConn()
	reg.Register("u1", requester)
	reg.Register("u2", other)

	o.Reply(context.Background(), "c1", "hello", requester)

	errs := requester.events(domain.EventChatAIError)
	if len(errs) != 1 || errs[0].Data.(domain.ErrorPayload).Message != "AI generation failed" {
		t.Errorf("unexpected AI error events: %+v", errs)
	}
	if got := len(other.events(domain.EventChatAIError)); got != 0 {
		t.Errorf("failure must stay local to the requester, got %d events elsewhere", got)
	}
	if len(store.messages) != 0 {
		t.Error("expected nothing persisted on failure")
	}
}

func TestReplyEmptyGenerationIsFailure(t *testing.T) {
	store := newStore()
	o, _ := wire(store, &fakeGenerator{text: "   "})

	requester := newFakeConn()
	o.Reply(context.Background(), "c1", "hello", requester)

	errs := requester.events(domain.EventChatAIError)
	if len(errs) != 1 {
		t.Fatalf("expected 1 AI error, got %d", len(errs))
	}
	if len(store.messages) != 0 {
		t.Error("expected nothing persisted for empty output")
	}
}

func TestReplyWithoutProvider(t *testing.T) {
	store := newStore()
	o, _ := wire(store, nil)

	requester := newFakeConn()
	o.Reply(context.Background(), "c1", "hello", requester)

	errs := requester.events(domain.EventChatAIError)
	if len(errs) != 1 || errs[0].Data.(domain.ErrorPayload).Message != "Missing Gemini API key" {
		t.Errorf("unexpected AI error events: %+v", errs)
	}
}

func TestReplyErrorSkipsClosedRequester(t *testing.T) {
	store := newStore()
	o, _ := wire(store, &fakeGenerator{err: errors.New("boom")})

	requester := newFakeConn()
	requester.open = false
	o.Reply(context.Background(), "c1", "hello", requester)

	requester.mu.Lock()
	defer requester.mu.Unlock()
	if len(requester.sent) != 0 {
		t.Errorf("expected no sends to a closed connection, got %+v", requester.sent)
	}
}
