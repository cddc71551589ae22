package conversation

import (
	"io"
	"log"
	"testing"
	"time"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestResolve_Idempotent(t *testing.T) {
	s := NewStore(time.Hour, time.Hour, quietLogger())
	first := s.Resolve("session-a")
	second := s.Resolve("session-a")
	if first == "" {
		t.Fatal("Resolve returned empty conversation ID")
	}
	if first != second {
		t.Errorf("Resolve not idempotent: %s vs %s", first, second)
	}
	if other := s.Resolve("session-b"); other == first {
		t.Error("distinct sessions share a conversation ID")
	}
}

func TestAppend_PreservesOrder(t *testing.T) {
	s := NewStore(time.Hour, time.Hour, quietLogger())
	messages := []string{"one", "two", "three", "four"}
	for i, m := range messages {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.Append("session-a", m, role)
	}

	history := s.History("session-a")
	if len(history) != len(messages) {
		t.Fatalf("expected %d turns, got %d", len(messages), len(history))
	}
	for i, m := range messages {
		if history[i].Content != m {
			t.Errorf("turn %d: expected %q, got %q", i, m, history[i].Content)
		}
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Error("roles not preserved")
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	s := NewStore(time.Hour, time.Hour, quietLogger())
	s.Append("session-a", "original", RoleUser)
	history := s.History("session-a")
	history[0].Content = "mutated"
	if got := s.History("session-a")[0].Content; got != "original" {
		t.Errorf("store history mutated through returned slice: %q", got)
	}
}

func TestSweep_EvictsIdleSessions(t *testing.T) {
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(24*time.Hour, time.Hour, quietLogger(), WithClock(func() time.Time { return current }))

	s.Append("idle", "hello", RoleUser)
	current = current.Add(12 * time.Hour)
	s.Append("fresh", "hello", RoleUser)

	// idle is now 13h old, fresh 1h old
	current = current.Add(time.Hour)
	idleConv := s.Resolve("idle")

	// push idle past the timeout; the resolve above refreshed nothing
	current = current.Add(12 * time.Hour)
	if err := s.sweep(); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if s.Has("idle") {
		t.Error("idle session survived the sweep")
	}
	if !s.Has("fresh") {
		t.Error("fresh session was evicted")
	}
	if got := s.Resolve("idle"); got == idleConv {
		t.Error("expired session resurrected its old conversation ID")
	}
	if len(s.History("idle")) != 0 {
		t.Error("expired session kept its history")
	}
}

func TestSweep_RetainsActiveSessions(t *testing.T) {
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(24*time.Hour, time.Hour, quietLogger(), WithClock(func() time.Time { return current }))

	s.Append("active", "hello", RoleUser)
	conv := s.Resolve("active")

	current = current.Add(23 * time.Hour)
	if err := s.sweep(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !s.Has("active") {
		t.Fatal("session within timeout was evicted")
	}
	if got := s.Resolve("active"); got != conv {
		t.Error("conversation ID changed across a retaining sweep")
	}
	if len(s.History("active")) != 1 {
		t.Error("history lost across a retaining sweep")
	}
}

func TestSweeper_Lifecycle(t *testing.T) {
	s := NewStore(time.Millisecond, 5*time.Millisecond, quietLogger())
	s.Append("short-lived", "hello", RoleUser)

	s.Start()
	defer s.Stop()

	deadline := time.After(time.Second)
	for s.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never evicted the idle conversation")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
	s.Stop() // safe to call twice
}
