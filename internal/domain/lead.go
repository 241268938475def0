package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lead statuses. Expired is also derived lazily from the freshness window.
const (
	LeadStatusActive  = "active"
	LeadStatusPaused  = "paused"
	LeadStatusClosed  = "closed"
	LeadStatusExpired = "expired"
)

// DefaultMaxSlots is the number of non-exclusive slots sold per lead.
const DefaultMaxSlots = 3

// Lead is a tenant's rental request. ClaimedSlots, IsExclusive and ExclusiveHolderID are
// written only by the allocator inside an unlock transaction.
type Lead struct {
	LeadID            uuid.UUID      `gorm:"column:lead_id;type:uuid;primaryKey" json:"lead_id"`
	TenantName        string         `gorm:"column:tenant_name;not null" json:"-"`
	TenantEmail       string         `gorm:"column:tenant_email" json:"-"`
	TenantPhone       string         `gorm:"column:tenant_phone" json:"-"`
	City              string         `gorm:"column:city;not null" json:"city"`
	PropertyType      string         `gorm:"column:property_type" json:"property_type"`
	Bedrooms          *int           `gorm:"column:bedrooms" json:"bedrooms"`
	BudgetMin         *int           `gorm:"column:budget_min" json:"budget_min"`
	BudgetMax         *int           `gorm:"column:budget_max" json:"budget_max"`
	MoveInDate        *time.Time     `gorm:"column:move_in_date" json:"move_in_date"`
	Requirements      datatypes.JSON `gorm:"column:requirements" json:"requirements"`
	BasePrice         int            `gorm:"column:base_price;not null" json:"base_price"`
	ClaimedSlots      int            `gorm:"column:claimed_slots;not null;default:0;check:claimed_slots >= 0" json:"claimed_slots"`
	MaxSlots          int            `gorm:"column:max_slots;not null;default:3" json:"max_slots"`
	IsExclusive       bool           `gorm:"column:is_exclusive;not null;default:false" json:"is_exclusive"`
	ExclusiveHolderID *uuid.UUID     `gorm:"column:exclusive_holder_id;type:uuid" json:"-"`
	Status            string         `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	Views             int            `gorm:"column:views;not null;default:0" json:"views"`
	Contacts          int            `gorm:"column:contacts;not null;default:0" json:"contacts"`
	CreatedAt         time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate sets lead_id and the slot defaults when not provided.
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.LeadID == uuid.Nil {
		l.LeadID = uuid.New()
	}
	if l.MaxSlots == 0 {
		l.MaxSlots = DefaultMaxSlots
	}
	if l.Status == "" {
		l.Status = LeadStatusActive
	}
	return nil
}

// IsValidLeadStatus reports whether s is one of the stored lead statuses.
func IsValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusActive, LeadStatusPaused, LeadStatusClosed, LeadStatusExpired:
		return true
	}
	return false
}
