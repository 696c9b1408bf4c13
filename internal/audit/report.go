package audit

import "time"

// UserActivity aggregates one user's events in a reporting window.
type UserActivity struct {
	Username       string
	LoginSuccesses int
	LoginFailures  int
	Lockouts       int
	EventsByType   map[string]int
}

// ActivityReport summarizes audit activity over a time range.
type ActivityReport struct {
	From        time.Time
	To          time.Time
	TotalEvents int
	Totals      map[string]int
	PerUser     map[string]*UserActivity
}

// GenerateActivityReport builds per-user and total event counts for the
// given window from the retained events.
func (l *Log) GenerateActivityReport(from, to time.Time) *ActivityReport {
	events := l.Query(Filter{From: from, To: to})
	report := &ActivityReport{
		From:    from,
		To:      to,
		Totals:  make(map[string]int),
		PerUser: make(map[string]*UserActivity),
	}
	for _, event := range events {
		report.TotalEvents++
		report.Totals[event.EventType]++
		if event.Username == "" {
			continue
		}
		activity, ok := report.PerUser[event.Username]
		if !ok {
			activity = &UserActivity{
				Username:     event.Username,
				EventsByType: make(map[string]int),
			}
			report.PerUser[event.Username] = activity
		}
		activity.EventsByType[event.EventType]++
		switch event.EventType {
		case EventTypeLoginSuccess:
			activity.LoginSuccesses++
		case EventTypeLoginFailure:
			activity.LoginFailures++
		case EventTypeAccountLocked:
			activity.Lockouts++
		}
	}
	return report
}
