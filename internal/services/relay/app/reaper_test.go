package server

import (
	"testing"
	"time"
)

func newReaperCore(now *time.Time) *core {
	return newCore(&memoryStore{}, func() time.Time { return *now }, 0)
}

func TestSweepIdleEvictsSilentSessions(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newReaperCore(&now)

	alice, aliceSink := attach(c)
	identify(t, c, alice, aliceSink, "alice")
	joinRoom(t, c, alice, aliceSink, 1)

	now = now.Add(5 * time.Minute)
	bob, bobSink := attach(c)
	identify(t, c, bob, bobSink, "bob")
	joinRoom(t, c, bob, bobSink, 1)
	bobSink.records(t)

	now = now.Add(6 * time.Minute)
	if evicted := c.sweepIdle(10 * time.Minute); evicted != 1 {
		t.Fatalf("sweepIdle evicted %d sessions, want 1", evicted)
	}

	if !aliceSink.isClosed() {
		t.Fatal("idle connection left open")
	}
	if c.registry.lookup("alice") != nil {
		t.Fatal("idle nickname still registered")
	}
	if c.rooms.contains(1, "alice") {
		t.Fatal("idle nickname still in room")
	}

	bobRecs := bobSink.records(t)
	left := lastOfType(t, bobRecs, "leave")
	if left["nickname"] != "alice" {
		t.Fatalf("leave notice = %v, want alice", left)
	}
	roster := lastOfType(t, bobRecs, "active_users")
	if users := roster["users"].([]any); len(users) != 1 {
		t.Fatalf("roster after sweep = %v, want only bob", users)
	}
}

func TestSweepIdleSparesActiveSessions(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newReaperCore(&now)

	alice, aliceSink := attach(c)
	identify(t, c, alice, aliceSink, "alice")

	now = now.Add(9 * time.Minute)
	if evicted := c.sweepIdle(10 * time.Minute); evicted != 0 {
		t.Fatalf("sweepIdle evicted %d sessions, want 0", evicted)
	}
	if aliceSink.isClosed() {
		t.Fatal("active connection closed")
	}
}

func TestSweepIdleActivityResetsTheClock(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newReaperCore(&now)

	alice, aliceSink := attach(c)
	identify(t, c, alice, aliceSink, "alice")
	joinRoom(t, c, alice, aliceSink, 1)

	// Any frame counts as activity, including one that fails validation.
	now = now.Add(9 * time.Minute)
	c.handleFrame(alice, frame{Type: "message", RoomID: "bogus"})
	aliceSink.records(t)

	now = now.Add(9 * time.Minute)
	if evicted := c.sweepIdle(10 * time.Minute); evicted != 0 {
		t.Fatalf("sweepIdle evicted %d sessions, want 0", evicted)
	}

	now = now.Add(2 * time.Minute)
	if evicted := c.sweepIdle(10 * time.Minute); evicted != 1 {
		t.Fatalf("sweepIdle evicted %d sessions, want 1", evicted)
	}
}

func TestSweepIdleRepeatSweepIsCheap(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newReaperCore(&now)

	alice, aliceSink := attach(c)
	identify(t, c, alice, aliceSink, "alice")

	now = now.Add(time.Hour)
	if evicted := c.sweepIdle(10 * time.Minute); evicted != 1 {
		t.Fatalf("first sweep evicted %d, want 1", evicted)
	}
	if evicted := c.sweepIdle(10 * time.Minute); evicted != 0 {
		t.Fatalf("second sweep evicted %d, want 0", evicted)
	}
	if !aliceSink.isClosed() {
		t.Fatal("evicted connection left open")
	}
}
