package registry

import (
	"sort"
	"testing"

	"github.com/rexmirak/Chat-app/internal/domain"
)

type fakeConn struct {
	open bool
	sent []*domain.Event
}

func (c *fakeConn) SendEvent(event *domain.Event) error {
	c.sent = append(c.sent, event)
	return nil
}

func (c *fakeConn) Open() bool { return c.open }

func TestRegisterFirstConnection(t *testing.T) {
	reg := New()
	c1 := &fakeConn{open: true}
	c2 := &fakeConn{open: true}

	if !reg.Register("u1", c1) {
		t.Error("expected first connection to report first=true")
	}
	if reg.Register("u1", c2) {
		t.Error("expected second connection to report first=false")
	}
	if got := len(reg.ConnectionsFor("u1")); got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}
}

func TestUnregisterLastConnection(t *testing.T) {
	reg := New()
	c1 := &fakeConn{open: true}
	c2 := &fakeConn{open: true}
	reg.Register("u1", c1)
	reg.Register("u1", c2)

	if reg.Unregister("u1", c1) {
		t.Error("expected wasLast=false while a connection remains")
	}
	if !reg.Online("u1") {
		t.Error("expected user to remain online")
	}
	if !reg.Unregister("u1", c2) {
		t.Error("expected wasLast=true for the final connection")
	}
	if reg.Online("u1") {
		t.Error("expected user to be offline after last unregister")
	}
}

func TestUnregisterUnknownConnection(t *testing.T) {
	reg := New()
	c1 := &fakeConn{open: true}
	reg.Register("u1", c1)

	if reg.Unregister("u1", &fakeConn{}) {
		t.Error("unknown connection must not report wasLast")
	}
	if reg.Unregister("u2", c1) {
		t.Error("unknown user must not report wasLast")
	}
	if !reg.Online("u1") {
		t.Error("expected u1 to stay online")
	}
}

func TestOnlineUserIDs(t *testing.T) {
	reg := New()
	reg.Register("u1", &fakeConn{open: true})
	reg.Register("u1", &fakeConn{open: true})
	reg.Register("u2", &fakeConn{open: true})

	ids := reg.OnlineUserIDs()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("expected [u1 u2], got %v", ids)
	}
}

func TestConnectionsForUnknownUser(t *testing.T) {
	reg := New()
	if conns := reg.ConnectionsFor("nobody"); conns != nil {
		t.Errorf("expected nil, got %v", conns)
	}
}
