package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultReferralBonus is credited to a referrer once per referred agent.
const DefaultReferralBonus = 5

// Referral links a referrer to the agent they brought in. BonusAwarded flips once.
type Referral struct {
	ReferralID    uuid.UUID  `gorm:"column:referral_id;type:uuid;primaryKey" json:"referral_id"`
	ReferrerID    uuid.UUID  `gorm:"column:referrer_id;type:uuid;not null;uniqueIndex:idx_referral_pair" json:"referrer_id"`
	ReferredID    uuid.UUID  `gorm:"column:referred_id;type:uuid;not null;uniqueIndex:idx_referral_pair;uniqueIndex:idx_referral_referred" json:"referred_id"`
	BonusAwarded  bool       `gorm:"column:bonus_awarded;not null;default:false" json:"bonus_awarded"`
	CreditsEarned int        `gorm:"column:credits_earned;not null;default:0" json:"credits_earned"`
	AwardedAt     *time.Time `gorm:"column:awarded_at" json:"awarded_at"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ReferralID == uuid.Nil {
		r.ReferralID = uuid.New()
	}
	return nil
}
