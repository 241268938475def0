package agents

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadslot-backend/internal/application/referrals"
	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/domain"
	"leadslot-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB        *gorm.DB
	Ledger    *wallet.Ledger
	Referrals *referrals.Service
	Now       func() time.Time
}

type OnboardInput struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
}

type OnboardResult struct {
	Agent    domain.Agent     `json:"agent"`
	Balance  int              `json:"balance"`
	Referral *domain.Referral `json:"referral,omitempty"`
}

type ActivateResult struct {
	Agent    domain.Agent     `json:"agent"`
	Referral *domain.Referral `json:"referral,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Onboard creates the agent, its wallet and, when a code is given, the pending referral,
// all in one transaction.
func (s *Service) Onboard(ctx context.Context, in OnboardInput) (*OnboardResult, error) {
	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidFullname(name) || !validation.IsValidEmail(email) {
		return nil, domain.ErrInvalidAgent
	}

	var out OnboardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Agent{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrEmailTaken
		}

		code, err := uniqueReferralCode(tx)
		if err != nil {
			return err
		}
		now := s.now()
		agent := domain.Agent{
			FullName:           name,
			Email:              email,
			Role:               "agent",
			VerificationStatus: domain.VerificationUnverified,
			AccountStatus:      domain.AccountPending,
			ReferralCode:       code,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.Create(&agent).Error; err != nil {
			return err
		}

		w, err := s.Ledger.Open(ctx, tx, agent.AgentID)
		if err != nil {
			return err
		}

		if strings.TrimSpace(in.ReferralCode) != "" && s.Referrals != nil {
			ref, err := s.Referrals.Register(ctx, tx, in.ReferralCode, agent.AgentID)
			if err != nil {
				return err
			}
			out.Referral = ref
		}

		out.Agent = agent
		out.Balance = w.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("agent_id", out.Agent.AgentID.String()).Bool("referred", out.Referral != nil).Msg("agent onboarded")
	return &out, nil
}

func (s *Service) Get(ctx context.Context, agentID uuid.UUID) (*domain.Agent, error) {
	var a domain.Agent
	if err := s.DB.WithContext(ctx).Where("agent_id = ?", agentID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// SetVerification records the outcome of the external identity check.
func (s *Service) SetVerification(ctx context.Context, agentID uuid.UUID, status string) (*domain.Agent, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsValidVerificationStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	if err := s.update(ctx, agentID, map[string]interface{}{"verification_status": status}); err != nil {
		return nil, err
	}
	log.Info().Str("agent_id", agentID.String()).Str("verification_status", status).Msg("agent verification updated")
	return s.Get(ctx, agentID)
}

// Activate marks the account active and settles the referral that brought the agent in.
// Calling it again retries a settlement that failed earlier and is otherwise a no-op.
func (s *Service) Activate(ctx context.Context, agentID uuid.UUID) (*ActivateResult, error) {
	if err := s.update(ctx, agentID, map[string]interface{}{"account_status": domain.AccountActive}); err != nil {
		return nil, err
	}
	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	out := &ActivateResult{Agent: *agent}
	if s.Referrals == nil {
		return out, nil
	}

	ref, err := s.Referrals.SettleReferred(ctx, agentID)
	switch {
	case err == nil:
		out.Referral = ref
	case errors.Is(err, domain.ErrReferralNotFound), errors.Is(err, domain.ErrAlreadySettled):
	default:
		return nil, err
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, agentID uuid.UUID, cols map[string]interface{}) error {
	cols["updated_at"] = s.now()
	res := s.DB.WithContext(ctx).Model(&domain.Agent{}).Where("agent_id = ?", agentID).UpdateColumns(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func uniqueReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < 5; i++ {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		var count int64
		if err := tx.Model(&domain.Agent{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a referral code")
}
