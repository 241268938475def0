package allocator

import (
	"context"
	"time"

	"leadslot-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Market statuses derived at read time.
const (
	MarketOpen      = "open"
	MarketSoldOut   = "sold_out"
	MarketExclusive = "exclusive"
	MarketExpired   = "expired"
	MarketPaused    = "paused"
	MarketClosed    = "closed"
)

// DefaultWindow is how long after creation a lead accepts new unlocks.
const DefaultWindow = 48 * time.Hour

var (
	defaultMultipliers = []decimal.Decimal{
		decimal.RequireFromString("1.0"),
		decimal.RequireFromString("1.5"),
		decimal.RequireFromString("2.5"),
	}
	defaultExclusiveFactor   = decimal.RequireFromString("5.0")
	defaultExclusiveDiscount = decimal.RequireFromString("0.85")
)

// Allocator is the single authority on slot availability and price.
type Allocator struct {
	Multipliers       []decimal.Decimal
	ExclusiveFactor   decimal.Decimal
	ExclusiveDiscount decimal.Decimal
	Window            time.Duration
}

// Tier is the pricing tier for the next slot on a lead.
type Tier struct {
	Index      int             `json:"tier"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// New returns an Allocator with the default multiplier table and the given window.
// A zero window falls back to DefaultWindow.
func New(window time.Duration) *Allocator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Allocator{
		Multipliers:       defaultMultipliers,
		ExclusiveFactor:   defaultExclusiveFactor,
		ExclusiveDiscount: defaultExclusiveDiscount,
		Window:            window,
	}
}

// PricingTier clamps claimed slots into the multiplier table; past the end the last
// multiplier applies, so price never decreases as slots fill.
func (a *Allocator) PricingTier(lead *domain.Lead) Tier {
	idx := lead.ClaimedSlots
	if idx < 0 {
		idx = 0
	}
	if idx >= len(a.Multipliers) {
		idx = len(a.Multipliers) - 1
	}
	return Tier{Index: idx, Multiplier: a.Multipliers[idx]}
}

// ComputePrice returns the credit cost of the next unlock. Exclusive buyout is only
// priced while no slot is taken and the lead is not already exclusive.
func (a *Allocator) ComputePrice(lead *domain.Lead, exclusive bool) (int, error) {
	base := decimal.NewFromInt(int64(lead.BasePrice))
	if exclusive {
		if lead.ClaimedSlots != 0 || lead.IsExclusive {
			return 0, domain.NotEligible(domain.ReasonExclusiveUnavailable)
		}
		return int(base.Mul(a.ExclusiveFactor).Mul(a.ExclusiveDiscount).Round(0).IntPart()), nil
	}
	tier := a.PricingTier(lead)
	return int(base.Mul(tier.Multiplier).Round(0).IntPart()), nil
}

// IsExpired reports whether the lead is past its freshness window at now.
func (a *Allocator) IsExpired(lead *domain.Lead, now time.Time) bool {
	return lead.Status == domain.LeadStatusExpired || now.Sub(lead.CreatedAt) > a.Window
}

// ExpiresAt returns the end of the lead's freshness window.
func (a *Allocator) ExpiresAt(lead *domain.Lead) time.Time {
	return lead.CreatedAt.Add(a.Window)
}

// CheckEligibility returns nil when agentID may open a new slot on lead at now,
// otherwise a *domain.NotEligibleError.
func (a *Allocator) CheckEligibility(lead *domain.Lead, agentID uuid.UUID, now time.Time) error {
	if a.IsExpired(lead, now) {
		return domain.NotEligible(domain.ReasonExpired)
	}
	if lead.Status != domain.LeadStatusActive {
		return domain.NotEligible(domain.ReasonInactive)
	}
	if lead.IsExclusive && (lead.ExclusiveHolderID == nil || *lead.ExclusiveHolderID != agentID) {
		return domain.NotEligible(domain.ReasonAlreadyExclusive)
	}
	if !lead.IsExclusive && lead.ClaimedSlots >= lead.MaxSlots {
		return domain.NotEligible(domain.ReasonSoldOut)
	}
	return nil
}

// MarketStatus derives the open-market state of a lead.
func (a *Allocator) MarketStatus(lead *domain.Lead, now time.Time) string {
	switch {
	case a.IsExpired(lead, now):
		return MarketExpired
	case lead.Status == domain.LeadStatusPaused:
		return MarketPaused
	case lead.Status == domain.LeadStatusClosed:
		return MarketClosed
	case lead.IsExclusive:
		return MarketExclusive
	case lead.ClaimedSlots >= lead.MaxSlots:
		return MarketSoldOut
	}
	return MarketOpen
}

// ReserveSlot claims a slot on lead inside tx. Must only be called from the unlock
// transaction. The UPDATE is conditional, so a concurrent claim of the last slot
// affects zero rows instead of overselling.
func (a *Allocator) ReserveSlot(ctx context.Context, tx *gorm.DB, lead *domain.Lead, agentID uuid.UUID, exclusive bool, now time.Time) error {
	q := tx.WithContext(ctx).Model(&domain.Lead{})
	var res *gorm.DB
	if exclusive {
		res = q.Where("lead_id = ? AND claimed_slots = 0 AND is_exclusive = ?", lead.LeadID, false).
			UpdateColumns(map[string]interface{}{
				"is_exclusive":        true,
				"exclusive_holder_id": agentID,
				"updated_at":          now,
			})
	} else {
		res = q.Where("lead_id = ? AND claimed_slots < max_slots AND is_exclusive = ?", lead.LeadID, false).
			UpdateColumns(map[string]interface{}{
				"claimed_slots": gorm.Expr("claimed_slots + 1"),
				"updated_at":    now,
			})
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return a.lostRace(ctx, tx, lead.LeadID, agentID, exclusive, now)
	}

	if exclusive {
		lead.IsExclusive = true
		holder := agentID
		lead.ExclusiveHolderID = &holder
	} else {
		lead.ClaimedSlots++
	}
	lead.UpdatedAt = now
	return nil
}

// lostRace explains a conditional UPDATE that matched nothing.
func (a *Allocator) lostRace(ctx context.Context, tx *gorm.DB, leadID, agentID uuid.UUID, exclusive bool, now time.Time) error {
	var current domain.Lead
	if err := tx.WithContext(ctx).Where("lead_id = ?", leadID).First(&current).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ErrLeadNotFound
		}
		return err
	}
	if err := a.CheckEligibility(&current, agentID, now); err != nil {
		return err
	}
	if exclusive {
		return domain.NotEligible(domain.ReasonExclusiveUnavailable)
	}
	return domain.NotEligible(domain.ReasonSoldOut)
}
