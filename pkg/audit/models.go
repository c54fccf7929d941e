package audit

import (
	"time"

	"gorm.io/datatypes"
)

// Outcomes recorded on an Event.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Event is an immutable record of one mutating API request.
type Event struct {
	ID            string            `gorm:"primaryKey;column:id;type:varchar(36)"`
	CorrelationID string            `gorm:"column:correlation_id;size:64;index"`
	RequestID     string            `gorm:"column:request_id;size:64;index"`
	Actor         string            `gorm:"column:actor;size:255;index:idx_audit_actor_time,priority:1;not null"`
	Resource      string            `gorm:"column:resource;size:32;index:idx_audit_resource_time,priority:1;not null"`
	ResourceID    string            `gorm:"column:resource_id;size:64"`
	Action        string            `gorm:"column:action;size:64;not null"`
	Outcome       string            `gorm:"column:outcome;size:16;not null"`
	StatusCode    int               `gorm:"column:status_code"`
	Metadata      datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt     time.Time         `gorm:"column:created_at;index:idx_audit_actor_time,priority:2;index:idx_audit_resource_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Event) TableName() string { return "audit_events" }
