package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VerificationVerified   = "verified"
	VerificationPending    = "pending"
	VerificationUnverified = "unverified"

	AccountPending = "pending"
	AccountActive  = "active"
)

// Agent is the marketplace-side view of an agent account. Identity verification happens
// elsewhere; VerificationStatus is its recorded outcome.
type Agent struct {
	AgentID            uuid.UUID `gorm:"column:agent_id;type:uuid;primaryKey" json:"agent_id"`
	FullName           string    `gorm:"column:full_name;not null" json:"full_name"`
	Email              string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Role               string    `gorm:"column:role;type:varchar(20);not null;default:'agent'" json:"role"`
	VerificationStatus string    `gorm:"column:verification_status;type:varchar(20);not null;default:'unverified'" json:"verification_status"`
	AccountStatus      string    `gorm:"column:account_status;type:varchar(20);not null;default:'pending'" json:"account_status"`
	ReferralCode       string    `gorm:"column:referral_code;type:varchar(16);not null;uniqueIndex" json:"referral_code"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Agent) TableName() string {
	return "agents"
}

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.AgentID == uuid.Nil {
		a.AgentID = uuid.New()
	}
	return nil
}

// IsValidVerificationStatus reports whether s is a known verification outcome.
func IsValidVerificationStatus(s string) bool {
	switch s {
	case VerificationVerified, VerificationPending, VerificationUnverified:
		return true
	}
	return false
}
