package presence

import (
	"context"
	"time"

	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/fanout"
	"github.com/rexmirak/Chat-app/internal/registry"
	"github.com/rexmirak/Chat-app/internal/repository"
	"github.com/rexmirak/Chat-app/pkg/log"
)

// Tracker derives online/offline transitions from registry occupancy and
// broadcasts them. Presence is best effort: persistence failures never block
// connection setup or teardown.
type Tracker struct {
	registry *registry.Registry
	fanout   *fanout.Fanout
	store    repository.Store
}

// NewTracker creates a presence tracker over the given registry and fanout.
func NewTracker(reg *registry.Registry, f *fanout.Fanout, store repository.Store) *Tracker {
	return &Tracker{
		registry: reg,
		fanout:   f,
		store:    store,
	}
}

// HandleConnect registers the connection and runs the handshake presence
// sequence: a one-time snapshot to the new connection, and on the user's
// first connection an ONLINE broadcast to everyone else. botUserID, when
// non-empty, is appended to the snapshot as ONLINE if the bot has no live
// connection of its own.
func (t *Tracker) HandleConnect(ctx context.Context, userID string, conn registry.Connection, botUserID string) {
	snapshot := t.snapshot(botUserID)
	first := t.registry.Register(userID, conn)

	if err := conn.SendEvent(&domain.Event{Event: domain.EventPresenceSnapshot, Data: snapshot}); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Str(log.FieldUserID, userID).Msg("presence snapshot send failed")
	}

	if first {
		t.fanout.BroadcastAllExcept(&domain.Event{
			Event: domain.EventUserStatus,
			Data:  domain.PresenceEntry{UserID: userID, Status: domain.StatusOnline, LastSeenAt: nil},
		}, userID)
	}
}

// HandleDisconnect unregisters the connection. When it was the user's last
// one, the last-seen timestamp is persisted and an OFFLINE change is
// broadcast. The persistence write is best effort.
func (t *Tracker) HandleDisconnect(ctx context.Context, userID string, conn registry.Connection) {
	wasLast := t.registry.Unregister(userID, conn)
	if !wasLast {
		return
	}

	lastSeenAt := time.Now().UTC()
	if err := t.store.UpdateLastSeen(ctx, userID, lastSeenAt); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("last-seen persistence failed")
	}

	t.fanout.BroadcastAll(&domain.Event{
		Event: domain.EventUserStatus,
		Data:  domain.PresenceEntry{UserID: userID, Status: domain.StatusOffline, LastSeenAt: &lastSeenAt},
	})
}

// snapshot lists every currently online user as an ONLINE entry.
func (t *Tracker) snapshot(botUserID string) []domain.PresenceEntry {
	online := t.registry.OnlineUserIDs()
	entries := make([]domain.PresenceEntry, 0, len(online)+1)
	for _, userID := range online {
		entries = append(entries, domain.PresenceEntry{UserID: userID, Status: domain.StatusOnline})
	}

	// The automated identity answers even without a live connection; it is
	// advertised as online unless it happens to have one.
	if botUserID != "" && !t.registry.Online(botUserID) {
		entries = append(entries, domain.PresenceEntry{UserID: botUserID, Status: domain.StatusOnline})
	}
	return entries
}
