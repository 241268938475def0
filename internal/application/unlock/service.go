package unlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadslot-backend/internal/application/allocator"
	"leadslot-backend/internal/application/notifications"
	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 25 * time.Millisecond
)

// Service is the single transactional entry point that combines the allocator and the ledger.
type Service struct {
	DB          *gorm.DB
	Allocator   *allocator.Allocator
	Ledger      *wallet.Ledger
	Publisher   notifications.Publisher
	MaxAttempts int
	Backoff     time.Duration
	Now         func() time.Time
}

// Result is the outcome of an unlock. AlreadyUnlocked means nothing was charged and
// Contact is the record from the earlier purchase.
type Result struct {
	Contact         domain.Contact `json:"contact"`
	Price           int            `json:"price"`
	Balance         *int           `json:"balance,omitempty"`
	AlreadyUnlocked bool           `json:"already_unlocked"`
}

// UnlockedLead is a purchased lead with the tenant contact details revealed.
type UnlockedLead struct {
	Contact     domain.Contact `json:"contact"`
	LeadID      uuid.UUID      `json:"lead_id"`
	TenantName  string         `json:"tenant_name"`
	TenantEmail string         `json:"tenant_email"`
	TenantPhone string         `json:"tenant_phone"`
	City        string         `json:"city"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultMaxAttempts
}

func (s *Service) backoff() time.Duration {
	if s.Backoff > 0 {
		return s.Backoff
	}
	return defaultBackoff
}

// Unlock charges agentID for a slot (or the exclusive buyout) on leadID. Business
// outcomes come back as domain errors; infrastructure failures are retried a bounded
// number of times before surfacing.
func (s *Service) Unlock(ctx context.Context, agentID, leadID uuid.UUID, exclusive bool) (*Result, error) {
	var agent domain.Agent
	if err := s.DB.WithContext(ctx).Select("agent_id", "verification_status").Where("agent_id = ?", agentID).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, err
	}
	if agent.VerificationStatus != domain.VerificationVerified {
		return nil, domain.ErrNotVerified
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts(); attempt++ {
		res, err := s.attempt(ctx, agentID, leadID, exclusive)
		if err == nil {
			if !res.AlreadyUnlocked {
				log.Info().
					Str("agent_id", agentID.String()).
					Str("lead_id", leadID.String()).
					Int("price", res.Price).
					Bool("exclusive", exclusive).
					Msg("lead unlocked")
				notifications.Emit(ctx, s.Publisher, domain.EventLeadUnlocked, map[string]interface{}{
					"agent_id":   agentID.String(),
					"lead_id":    leadID.String(),
					"contact_id": res.Contact.ContactID.String(),
					"cost_paid":  res.Price,
					"exclusive":  exclusive,
				})
			}
			return res, nil
		}
		if domain.IsBusinessError(err) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("lead_id", leadID.String()).Msg("unlock transaction failed, retrying")

		timer := time.NewTimer(time.Duration(attempt) * s.backoff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("unlock failed after %d attempts: %w", s.maxAttempts(), lastErr)
}

// attempt runs the idempotency check, eligibility, debit, slot reservation and record
// creation as one transaction. Any error rolls all of it back.
func (s *Service) attempt(ctx context.Context, agentID, leadID uuid.UUID, exclusive bool) (*Result, error) {
	var result *Result
	now := s.now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lead domain.Lead
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLeadNotFound
			}
			return err
		}

		var existing domain.Contact
		err := tx.Where("agent_id = ? AND lead_id = ?", agentID, leadID).First(&existing).Error
		if err == nil {
			result = &Result{Contact: existing, Price: existing.CostPaid, AlreadyUnlocked: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.Allocator.CheckEligibility(&lead, agentID, now); err != nil {
			return err
		}
		price, err := s.Allocator.ComputePrice(&lead, exclusive)
		if err != nil {
			return err
		}

		reason := "lead unlock"
		if exclusive {
			reason = "exclusive lead buyout"
		}
		balance, err := s.Ledger.Debit(ctx, tx, wallet.Entry{
			AgentID:       agentID,
			Amount:        price,
			Type:          domain.TxUnlockDebit,
			Reason:        reason,
			RelatedLeadID: &lead.LeadID,
		})
		if err != nil {
			return err
		}

		if err := s.Allocator.ReserveSlot(ctx, tx, &lead, agentID, exclusive, now); err != nil {
			return err
		}

		contact := domain.Contact{
			AgentID:     agentID,
			LeadID:      lead.LeadID,
			CostPaid:    price,
			IsExclusive: exclusive,
			CreatedAt:   now,
		}
		if err := tx.Create(&contact).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Lead{}).Where("lead_id = ?", lead.LeadID).
			UpdateColumn("contacts", gorm.Expr("contacts + 1")).Error; err != nil {
			return err
		}

		result = &Result{Contact: contact, Price: price, Balance: &balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Quote previews what Unlock would charge agentID on leadID right now. Nothing is locked
// or written.
func (s *Service) Quote(ctx context.Context, agentID, leadID uuid.UUID) (*allocator.Quote, error) {
	var lead domain.Lead
	if err := s.DB.WithContext(ctx).Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	q := s.Allocator.Quote(&lead, agentID, s.now())
	var held int64
	if err := s.DB.WithContext(ctx).Model(&domain.Contact{}).
		Where("agent_id = ? AND lead_id = ?", agentID, leadID).
		Count(&held).Error; err != nil {
		return nil, err
	}
	if held > 0 {
		q.MarkUnlocked()
	}
	return &q, nil
}

// ListUnlocked returns every lead agentID holds a record for, newest first, with the
// tenant contact details.
func (s *Service) ListUnlocked(ctx context.Context, agentID uuid.UUID) ([]UnlockedLead, error) {
	var contacts []domain.Contact
	if err := s.DB.WithContext(ctx).Where("agent_id = ?", agentID).Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return []UnlockedLead{}, nil
	}

	ids := make([]uuid.UUID, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.LeadID)
	}
	var leads []domain.Lead
	if err := s.DB.WithContext(ctx).Where("lead_id IN ?", ids).Find(&leads).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Lead, len(leads))
	for _, l := range leads {
		byID[l.LeadID] = l
	}

	out := make([]UnlockedLead, 0, len(contacts))
	for _, c := range contacts {
		l := byID[c.LeadID]
		out = append(out, UnlockedLead{
			Contact:     c,
			LeadID:      c.LeadID,
			TenantName:  l.TenantName,
			TenantEmail: l.TenantEmail,
			TenantPhone: l.TenantPhone,
			City:        l.City,
		})
	}
	return out, nil
}
