package fanout

import (
	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/registry"
	"github.com/rexmirak/Chat-app/pkg/log"
)

// Fanout delivers events to live connections through the registry. Delivery
// is best effort: closed connections and send failures are skipped, and no
// acknowledgment is awaited.
type Fanout struct {
	registry *registry.Registry
}

// New creates a fanout over the given registry.
func New(reg *registry.Registry) *Fanout {
	return &Fanout{registry: reg}
}

// Deliver sends the event to every open connection of each target user.
func (f *Fanout) Deliver(targetUserIDs []string, event *domain.Event) {
	for _, userID := range targetUserIDs {
		f.deliverTo(userID, event)
	}
}

// DeliverExcept sends the event to every open connection of each target
// user, skipping all connections owned by exceptUserID.
func (f *Fanout) DeliverExcept(targetUserIDs []string, event *domain.Event, exceptUserID string) {
	for _, userID := range targetUserIDs {
		if userID == exceptUserID {
			continue
		}
		f.deliverTo(userID, event)
	}
}

// BroadcastAll sends the event to every currently registered connection.
func (f *Fanout) BroadcastAll(event *domain.Event) {
	for _, userID := range f.registry.OnlineUserIDs() {
		f.deliverTo(userID, event)
	}
}

// BroadcastAllExcept sends the event to every registered connection not
// owned by exceptUserID.
func (f *Fanout) BroadcastAllExcept(event *domain.Event, exceptUserID string) {
	for _, userID := range f.registry.OnlineUserIDs() {
		if userID == exceptUserID {
			continue
		}
		f.deliverTo(userID, event)
	}
}

func (f *Fanout) deliverTo(userID string, event *domain.Event) {
	for _, conn := range f.registry.ConnectionsFor(userID) {
		if !conn.Open() {
			continue
		}
		if err := conn.SendEvent(event); err != nil {
			l := log.L()
			l.Debug().Err(err).Str(log.FieldUserID, userID).Str(log.FieldEvent, event.Event).Msg("fanout send skipped")
		}
	}
}
