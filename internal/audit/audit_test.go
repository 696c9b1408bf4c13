package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendAndQuery(t *testing.T) {
	log := NewLog(WithMaxEvents(100))
	ctx := context.Background()

	log.Append(ctx, Event{Username: "alice", EventType: EventTypeLoginSuccess, IP: "10.0.0.1"})
	log.Append(ctx, Event{Username: "bob", EventType: EventTypeLoginFailure})
	log.Append(ctx, Event{Username: "alice", EventType: EventTypeLogout})

	got := log.Query(Filter{Username: "alice"})
	if len(got) != 2 {
		t.Fatalf("query returned %d events, want 2", len(got))
	}
	if got[0].EventType != EventTypeLoginSuccess || got[1].EventType != EventTypeLogout {
		t.Errorf("events out of order: %v, %v", got[0].EventType, got[1].EventType)
	}
	if got[0].EventID == "" {
		t.Error("event id not assigned")
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("timestamp not assigned")
	}
}

func TestRingEviction(t *testing.T) {
	log := NewLog(WithMaxEvents(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		log.Append(ctx, Event{Username: fmt.Sprintf("user%d", i), EventType: EventTypeLoginFailure})
	}
	if log.Len() != 3 {
		t.Fatalf("len = %d, want 3", log.Len())
	}
	got := log.Query(Filter{})
	if got[0].Username != "user2" || got[2].Username != "user4" {
		t.Errorf("oldest events not evicted first: first=%s last=%s", got[0].Username, got[2].Username)
	}
}

func TestQueryTimeRangeAndLimit(t *testing.T) {
	log := NewLog(WithMaxEvents(10))
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 6; i++ {
		log.Append(ctx, Event{
			Username:  "alice",
			EventType: EventTypeLoginFailure,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got := log.Query(Filter{From: base.Add(2 * time.Minute), To: base.Add(4 * time.Minute)})
	if len(got) != 3 {
		t.Errorf("time range returned %d events, want 3", len(got))
	}
	got = log.Query(Filter{Limit: 2})
	if len(got) != 2 {
		t.Errorf("limit returned %d events, want 2", len(got))
	}
}

type failingRepository struct {
	calls int
}

func (r *failingRepository) RecordEvent(ctx context.Context, event *Event) error {
	r.calls++
	return errors.New("sink unavailable")
}

func TestAppendSurvivesSinkFailure(t *testing.T) {
	repo := &failingRepository{}
	log := NewLog(WithMaxEvents(10), WithRepository(repo))

	log.Append(context.Background(), Event{Username: "alice", EventType: EventTypeLoginSuccess})

	if repo.calls != 1 {
		t.Errorf("sink called %d times, want 1", repo.calls)
	}
	// the event must still be retained locally
	if got := log.Query(Filter{Username: "alice"}); len(got) != 1 {
		t.Errorf("event lost after sink failure: %d retained", len(got))
	}
}

func TestConcurrentAppendAndQuery(t *testing.T) {
	log := NewLog(WithMaxEvents(64))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.Append(ctx, Event{Username: fmt.Sprintf("writer%d", n), EventType: EventTypeLoginFailure})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.Query(Filter{EventType: EventTypeLoginFailure})
			}
		}()
	}
	wg.Wait()

	if log.Len() != 64 {
		t.Errorf("len = %d, want full ring of 64", log.Len())
	}
}

func TestGenerateActivityReport(t *testing.T) {
	log := NewLog(WithMaxEvents(100))
	ctx := context.Background()

	log.Append(ctx, Event{Username: "alice", EventType: EventTypeLoginSuccess})
	log.Append(ctx, Event{Username: "alice", EventType: EventTypeLoginFailure})
	log.Append(ctx, Event{Username: "alice", EventType: EventTypeLoginFailure})
	log.Append(ctx, Event{Username: "bob", EventType: EventTypeAccountLocked})

	report := log.GenerateActivityReport(time.Time{}, time.Time{})
	if report.TotalEvents != 4 {
		t.Errorf("total = %d, want 4", report.TotalEvents)
	}
	alice := report.PerUser["alice"]
	if alice == nil || alice.LoginSuccesses != 1 || alice.LoginFailures != 2 {
		t.Errorf("alice activity = %+v", alice)
	}
	bob := report.PerUser["bob"]
	if bob == nil || bob.Lockouts != 1 {
		t.Errorf("bob activity = %+v", bob)
	}
	if report.Totals[EventTypeLoginFailure] != 2 {
		t.Errorf("failure total = %d, want 2", report.Totals[EventTypeLoginFailure])
	}
}
