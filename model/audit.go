package model

import "time"

// AuditEvent is the durable form of a security audit record.
type AuditEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	EventID   string    `gorm:"size:64;uniqueIndex;not null"` // uuid assigned by the audit log
	UserID    uint      `gorm:"index"`                        // internal user id, zero when unknown
	Username  string    `gorm:"size:64;not null;index"`       // snapshot of username at event time
	EventType string    `gorm:"size:64;not null;index"`       // login_success, login_failure...
	Reason    string    `gorm:"size:512"`                     // failure reason or context
	Detail    string    `gorm:"size:1024"`                    // structured key/value payload, json encoded
	IP        string    `gorm:"size:45"`                      // IPv4/IPv6
	UserAgent string    `gorm:"size:512"`                     // user agent string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (AuditEvent) TableName() string {
	return "audit"
}
