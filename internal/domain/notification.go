package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventLeadUnlocked     = "lead_unlocked"
	EventReferralCredited = "referral_credited"
	EventReportResolved   = "report_resolved"
)

// NotificationEvent is the persisted copy of an emitted notification trigger.
type NotificationEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Type      string         `gorm:"column:type;type:varchar(32);not null;index" json:"type"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}

func (e *NotificationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
