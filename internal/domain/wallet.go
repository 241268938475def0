package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction types recorded in the wallet ledger.
const (
	TxPurchase        = "purchase"
	TxUnlockDebit     = "unlock_debit"
	TxRefundCredit    = "refund_credit"
	TxReferralCredit  = "referral_credit"
	TxAdminAdjustment = "admin_adjustment"

	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Wallet holds an agent's credit balance. Balance is mutated only by the wallet ledger.
type Wallet struct {
	AgentID   uuid.UUID `gorm:"column:agent_id;type:uuid;primaryKey" json:"agent_id"`
	Balance   int       `gorm:"column:balance;not null;default:0;check:balance >= 0" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction is an immutable ledger row paired with exactly one balance change.
type WalletTransaction struct {
	TxID          uuid.UUID  `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	AgentID       uuid.UUID  `gorm:"column:agent_id;type:uuid;not null;index" json:"agent_id"`
	Type          string     `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Direction     string     `gorm:"column:direction;type:varchar(6);not null" json:"direction"`
	Amount        int        `gorm:"column:amount;not null;check:amount > 0" json:"amount"`
	BalanceAfter  int        `gorm:"column:balance_after;not null" json:"balance_after"`
	Reason        string     `gorm:"column:reason" json:"reason"`
	RelatedLeadID *uuid.UUID `gorm:"column:related_lead_id;type:uuid" json:"related_lead_id"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
