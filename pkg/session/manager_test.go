package session

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	m := NewManager(ttl)
	t.Cleanup(m.Stop)
	return m
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(t, time.Hour)

	s := m.Create()
	if s.ID == "" {
		t.Fatal("expected a session id")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != s {
		t.Error("expected the same session instance")
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 session, got %d", m.Count())
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := newTestManager(t, time.Hour)

	if _, err := m.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(t, time.Hour)
	s := m.Create()

	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected session to be gone")
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManagerExpireIdle(t *testing.T) {
	m := newTestManager(t, 10*time.Minute)

	stale := m.Create()
	fresh := m.Create()

	// Age the stale session past the TTL.
	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	m.expireIdle(time.Now())

	if _, err := m.Get(stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected stale session expired")
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("expected fresh session kept: %v", err)
	}
}

func TestManagerUniqueIDs(t *testing.T) {
	m := newTestManager(t, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := m.Create()
		if seen[s.ID] {
			t.Fatalf("duplicate session id: %s", s.ID)
		}
		seen[s.ID] = true
	}
}
