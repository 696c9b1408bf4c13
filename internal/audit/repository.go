package audit

import (
	"context"
	"encoding/json"

	"github.com/glassworks/authcore/model"
	"gorm.io/gorm"
)

type EventRepository interface {
	RecordEvent(ctx context.Context, event *Event) error
}

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) RecordEvent(ctx context.Context, event *Event) error {
	var detail string
	if len(event.Detail) > 0 {
		raw, err := json.Marshal(event.Detail)
		if err != nil {
			return err
		}
		detail = string(raw)
	}
	return r.db.WithContext(ctx).Create(&model.AuditEvent{
		EventID:   event.EventID,
		UserID:    event.UserID,
		Username:  event.Username,
		EventType: event.EventType,
		Reason:    event.Reason,
		Detail:    detail,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		CreatedAt: event.CreatedAt,
	}).Error
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{
		db: db,
	}
}
