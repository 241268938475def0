package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportPending  = "pending"
	ReportApproved = "approved"
	ReportRejected = "rejected"
)

// ReasonCodes lists the accepted bad-lead reasons.
var ReasonCodes = []string{"wrong_number", "unresponsive", "already_rented", "fake", "duplicate", "other"}

// IsValidReasonCode reports whether code is one of ReasonCodes.
func IsValidReasonCode(code string) bool {
	for _, c := range ReasonCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Report is a dispute filed by an agent against a lead they unlocked.
type Report struct {
	ReportID       uuid.UUID  `gorm:"column:report_id;type:uuid;primaryKey" json:"report_id"`
	ReporterID     uuid.UUID  `gorm:"column:reporter_id;type:uuid;not null;index:idx_report_pair;uniqueIndex:idx_report_open,where:status = 'pending'" json:"reporter_id"`
	LeadID         uuid.UUID  `gorm:"column:lead_id;type:uuid;not null;index:idx_report_pair;uniqueIndex:idx_report_open,where:status = 'pending'" json:"lead_id"`
	ContactID      uuid.UUID  `gorm:"column:contact_id;type:uuid;not null" json:"contact_id"`
	ReasonCode     string     `gorm:"column:reason_code;type:varchar(32);not null" json:"reason_code"`
	Details        string     `gorm:"column:details" json:"details"`
	Status         string     `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	ResolutionNote string     `gorm:"column:resolution_note" json:"resolution_note"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Report) TableName() string {
	return "lead_reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ReportID == uuid.Nil {
		r.ReportID = uuid.New()
	}
	return nil
}
