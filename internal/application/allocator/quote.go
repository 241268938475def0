package allocator

import (
	"time"

	"leadslot-backend/internal/domain"

	"github.com/google/uuid"
)

// Quote is what a listing shows for a lead: the same numbers Unlock will charge.
type Quote struct {
	LeadID         uuid.UUID `json:"lead_id"`
	MarketStatus   string    `json:"market_status"`
	Tier           Tier      `json:"pricing"`
	Price          int       `json:"price"`
	ExclusivePrice *int      `json:"exclusive_price"`
	SlotsRemaining int       `json:"slots_remaining"`
	Eligible       bool      `json:"eligible"`
	Reason         string    `json:"reason,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Quote prices the next unlock of lead for agentID at now.
func (a *Allocator) Quote(lead *domain.Lead, agentID uuid.UUID, now time.Time) Quote {
	q := Quote{
		LeadID:       lead.LeadID,
		MarketStatus: a.MarketStatus(lead, now),
		Tier:         a.PricingTier(lead),
		ExpiresAt:    a.ExpiresAt(lead),
	}
	if price, err := a.ComputePrice(lead, false); err == nil {
		q.Price = price
	}
	if price, err := a.ComputePrice(lead, true); err == nil {
		q.ExclusivePrice = &price
	}
	if !lead.IsExclusive && lead.MaxSlots > lead.ClaimedSlots {
		q.SlotsRemaining = lead.MaxSlots - lead.ClaimedSlots
	}
	if lead.IsExclusive && lead.ExclusiveHolderID != nil && *lead.ExclusiveHolderID == agentID {
		q.MarkUnlocked()
		return q
	}
	if err := a.CheckEligibility(lead, agentID, now); err != nil {
		q.Reason = domain.EligibilityReason(err)
		q.ExclusivePrice = nil
	} else {
		q.Eligible = true
	}
	return q
}

// MarkUnlocked flags the quote as not buyable because the agent already holds the contact.
func (q *Quote) MarkUnlocked() {
	q.Eligible = false
	q.Reason = domain.ReasonAlreadyUnlocked
	q.ExclusivePrice = nil
}
