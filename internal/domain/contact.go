package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is the proof that an agent holds a slot on a lead. Refunds annotate the row;
// it is never deleted.
type Contact struct {
	ContactID   uuid.UUID  `gorm:"column:contact_id;type:uuid;primaryKey" json:"contact_id"`
	AgentID     uuid.UUID  `gorm:"column:agent_id;type:uuid;not null;uniqueIndex:idx_contact_agent_lead" json:"agent_id"`
	LeadID      uuid.UUID  `gorm:"column:lead_id;type:uuid;not null;uniqueIndex:idx_contact_agent_lead;index" json:"lead_id"`
	CostPaid    int        `gorm:"column:cost_paid;not null" json:"cost_paid"`
	IsExclusive bool       `gorm:"column:is_exclusive;not null;default:false" json:"is_exclusive"`
	Refunded    bool       `gorm:"column:refunded;not null;default:false" json:"refunded"`
	RefundedAt  *time.Time `gorm:"column:refunded_at" json:"refunded_at"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Contact) TableName() string {
	return "contact_history"
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ContactID == uuid.Nil {
		c.ContactID = uuid.New()
	}
	return nil
}
