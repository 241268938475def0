package referrals

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadslot-backend/internal/application/notifications"
	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB        *gorm.DB
	Ledger    *wallet.Ledger
	Publisher notifications.Publisher
	Bonus     int
	Now       func() time.Time
}

// Stats summarizes an agent's referrals.
type Stats struct {
	ReferrerID    uuid.UUID `json:"referrer_id"`
	ReferralCode  string    `json:"referral_code"`
	TotalReferred int64     `json:"total_referred"`
	Settled       int64     `json:"settled"`
	Pending       int64     `json:"pending"`
	CreditsEarned int       `json:"credits_earned"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) bonus() int {
	if s.Bonus > 0 {
		return s.Bonus
	}
	return domain.DefaultReferralBonus
}

func (s *Service) db(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.DB.WithContext(ctx)
}

// Register records that the owner of referrerCode brought in referredID. The referral
// stays unsettled until the referred agent is activated.
func (s *Service) Register(ctx context.Context, tx *gorm.DB, referrerCode string, referredID uuid.UUID) (*domain.Referral, error) {
	db := s.db(ctx, tx)
	code := strings.ToUpper(strings.TrimSpace(referrerCode))

	var referrer domain.Agent
	if err := db.Select("agent_id").Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownReferralCode
		}
		return nil, err
	}
	if referrer.AgentID == referredID {
		return nil, domain.ErrSelfReferral
	}

	var count int64
	if err := db.Model(&domain.Referral{}).Where("referred_id = ?", referredID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrAlreadyReferred
	}

	ref := domain.Referral{ReferrerID: referrer.AgentID, ReferredID: referredID, CreatedAt: s.now()}
	if err := db.Create(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

// Settle credits the referral bonus to referrerID exactly once. The flag flip and the
// credit commit together; a second call returns ErrAlreadySettled.
func (s *Service) Settle(ctx context.Context, referrerID, referredID uuid.UUID) (*domain.Referral, error) {
	if referrerID == referredID {
		return nil, domain.ErrSelfReferral
	}
	bonus := s.bonus()
	now := s.now()

	var ref domain.Referral
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("referrer_id = ? AND referred_id = ?", referrerID, referredID).First(&ref).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrReferralNotFound
			}
			return err
		}

		res := tx.Model(&domain.Referral{}).
			Where("referral_id = ? AND bonus_awarded = ?", ref.ReferralID, false).
			UpdateColumns(map[string]interface{}{
				"bonus_awarded":  true,
				"credits_earned": bonus,
				"awarded_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAlreadySettled
		}

		if _, err := s.Ledger.Credit(ctx, tx, wallet.Entry{
			AgentID: referrerID,
			Amount:  bonus,
			Type:    domain.TxReferralCredit,
			Reason:  "referral bonus",
		}); err != nil {
			return err
		}

		ref.BonusAwarded = true
		ref.CreditsEarned = bonus
		ref.AwardedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("referrer_id", referrerID.String()).Str("referred_id", referredID.String()).Int("bonus", bonus).Msg("referral settled")
	notifications.Emit(ctx, s.Publisher, domain.EventReferralCredited, map[string]interface{}{
		"referrer_id": referrerID.String(),
		"referred_id": referredID.String(),
		"credits":     bonus,
	})
	return &ref, nil
}

// SettleReferred settles the referral that brought in referredID, if there is one.
func (s *Service) SettleReferred(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error) {
	var ref domain.Referral
	if err := s.DB.WithContext(ctx).Where("referred_id = ?", referredID).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReferralNotFound
		}
		return nil, err
	}
	return s.Settle(ctx, ref.ReferrerID, referredID)
}

func (s *Service) Stats(ctx context.Context, referrerID uuid.UUID) (*Stats, error) {
	db := s.DB.WithContext(ctx)
	var agent domain.Agent
	if err := db.Select("agent_id", "referral_code").Where("agent_id = ?", referrerID).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}

	var row struct {
		Total   int64
		Settled int64
		Credits int
	}
	if err := db.Model(&domain.Referral{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN bonus_awarded THEN 1 ELSE 0 END), 0) AS settled, "+
			"COALESCE(SUM(credits_earned), 0) AS credits").
		Where("referrer_id = ?", referrerID).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	return &Stats{
		ReferrerID:    referrerID,
		ReferralCode:  agent.ReferralCode,
		TotalReferred: row.Total,
		Settled:       row.Settled,
		Pending:       row.Total - row.Settled,
		CreditsEarned: row.Credits,
	}, nil
}
