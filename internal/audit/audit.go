package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glassworks/authcore/params"
	"github.com/google/uuid"
)

// Audit event types.
const (
	EventTypeLoginSuccess       = "login_success"
	EventTypeLoginFailure       = "login_failure"
	EventTypeAccountLocked      = "account_locked"
	EventTypeLogout             = "logout"
	EventTypePasswordChanged    = "password_changed"
	EventTypePermissionsChanged = "permissions_changed"
	EventTypeSessionExpired     = "session_expired"
	EventTypeSessionFlagged     = "session_flagged"
)

// Event is a single security audit record. Events are immutable once
// appended.
type Event struct {
	EventID   string
	UserID    uint
	Username  string
	EventType string
	Reason    string
	Detail    map[string]string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Filter selects events on Query. Zero fields match everything.
type Filter struct {
	Username  string
	EventType string
	From      time.Time
	To        time.Time
	Limit     int
}

// Log is a bounded append-only journal of audit events. The most recent
// maxEvents entries are kept in a ring; older entries are evicted oldest
// first. An optional durable repository receives every event best-effort:
// a failing sink is logged and never fails the caller, the in-memory ring
// is the local fallback record.
type Log struct {
	mu        sync.RWMutex
	events    []Event
	start     int
	count     int
	maxEvents int
	repo      EventRepository
}

type Option func(*Log)

// WithRepository attaches a durable sink written on every append.
func WithRepository(repo EventRepository) Option {
	return func(l *Log) {
		l.repo = repo
	}
}

// WithMaxEvents overrides the ring capacity.
func WithMaxEvents(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxEvents = n
		}
	}
}

func NewLog(opts ...Option) *Log {
	l := &Log{maxEvents: params.AuditLogMaxEvents}
	for _, opt := range opts {
		opt(l)
	}
	l.events = make([]Event, l.maxEvents)
	return l
}

// Append records an event. It never fails the caller's primary operation.
func (l *Log) Append(ctx context.Context, event Event) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	pos := (l.start + l.count) % l.maxEvents
	l.events[pos] = event
	if l.count < l.maxEvents {
		l.count++
	} else {
		l.start = (l.start + 1) % l.maxEvents
	}
	l.mu.Unlock()

	if l.repo != nil {
		if err := l.repo.RecordEvent(ctx, &event); err != nil {
			slog.Error("Failed to persist audit event", "event", event.EventType, "id", event.EventID, "error", err)
		}
	}
}

// Query returns events matching the filter, oldest first.
func (l *Log) Query(filter Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []Event
	for i := 0; i < l.count; i++ {
		event := l.events[(l.start+i)%l.maxEvents]
		if filter.Username != "" && event.Username != filter.Username {
			continue
		}
		if filter.EventType != "" && event.EventType != filter.EventType {
			continue
		}
		if !filter.From.IsZero() && event.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && event.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, event)
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}
	return matched
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
