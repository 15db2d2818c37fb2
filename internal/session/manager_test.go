package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/onnwee/trailmark/internal/store"
	"github.com/onnwee/trailmark/internal/visit"
)

type fakeGateway struct{}

func (fakeGateway) ListTracking(ctx context.Context, filter store.TrackingFilter) ([]store.TrackingEntry, error) {
	return nil, nil
}

func (fakeGateway) InsertTracking(ctx context.Context, entry store.TrackingEntry) (store.TrackingEntry, error) {
	return entry, nil
}

func TestManager_SessionReuse(t *testing.T) {
	m := NewManager(fakeGateway{}, nil)

	s1, err := m.Session(1, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := m.Session(1, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s1 != s2 {
		t.Error("expected the same session for the same pair")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 session, got %d", m.Len())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	m := NewManager(fakeGateway{}, nil)

	alice, _ := m.Session(1, "alice")
	bob, _ := m.Session(1, "bob")
	aliceOther, _ := m.Session(2, "alice")

	if alice == bob || alice == aliceOther {
		t.Error("sessions must be distinct per (project, participant) pair")
	}
	if m.Len() != 3 {
		t.Errorf("expected 3 sessions, got %d", m.Len())
	}
}

func TestManager_EmptyUsername(t *testing.T) {
	m := NewManager(fakeGateway{}, nil)

	_, err := m.Session(1, "")
	if !errors.Is(err, visit.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected no sessions, got %d", m.Len())
	}
}

func TestManager_Evict(t *testing.T) {
	m := NewManager(fakeGateway{}, nil)

	s1, _ := m.Session(1, "alice")
	m.Evict(1, "alice")
	s2, _ := m.Session(1, "alice")

	if s1 == s2 {
		t.Error("expected a fresh session after eviction")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(fakeGateway{}, nil)

	var wg sync.WaitGroup
	sessions := make([]*visit.Session, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Session(1, "alice")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(sessions); i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent callers must share one session")
		}
	}
}
