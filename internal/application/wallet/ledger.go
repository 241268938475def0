package wallet

import (
	"context"
	"time"

	"leadslot-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger is the only writer of wallet balances. Every balance change appends exactly one
// WalletTransaction in the same database transaction.
type Ledger struct {
	DB              *gorm.DB
	StartingBalance int
	Now             func() time.Time
}

// Entry describes one ledger movement.
type Entry struct {
	AgentID       uuid.UUID
	Amount        int
	Type          string
	Reason        string
	RelatedLeadID *uuid.UUID
}

// Reconciliation compares a wallet balance with the sum of its ledger rows.
type Reconciliation struct {
	AgentID   uuid.UUID `json:"agent_id"`
	Balance   int       `json:"balance"`
	LedgerSum int       `json:"ledger_sum"`
	Drift     int       `json:"drift"`
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// inTx runs fn in tx when given, otherwise in a new transaction on l.DB.
func (l *Ledger) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx.WithContext(ctx))
	}
	return l.DB.WithContext(ctx).Transaction(fn)
}

// Open creates the wallet for agentID and books the configured starting balance.
func (l *Ledger) Open(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := l.inTx(ctx, tx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Wallet{}).Where("agent_id = ?", agentID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrWalletExists
		}
		w = domain.Wallet{AgentID: agentID, Balance: 0}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		if l.StartingBalance > 0 {
			balance, err := l.Credit(ctx, tx, Entry{
				AgentID: agentID,
				Amount:  l.StartingBalance,
				Type:    domain.TxAdminAdjustment,
				Reason:  "starting balance",
			})
			if err != nil {
				return err
			}
			w.Balance = balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit removes e.Amount from the wallet. The UPDATE only matches when the balance
// covers the amount, so concurrent debits can never drive it below zero.
func (l *Ledger) Debit(ctx context.Context, tx *gorm.DB, e Entry) (int, error) {
	if e.Amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	var balance int
	err := l.inTx(ctx, tx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Wallet{}).
			Where("agent_id = ? AND balance >= ?", e.AgentID, e.Amount).
			UpdateColumns(map[string]interface{}{
				"balance":    gorm.Expr("balance - ?", e.Amount),
				"updated_at": l.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := l.balance(tx, e.AgentID); err != nil {
				return err
			}
			return domain.ErrInsufficientFunds
		}
		var err error
		balance, err = l.record(tx, e, domain.DirectionDebit)
		return err
	})
	return balance, err
}

// Credit adds e.Amount to the wallet. It never fails on balance grounds.
func (l *Ledger) Credit(ctx context.Context, tx *gorm.DB, e Entry) (int, error) {
	if e.Amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	var balance int
	err := l.inTx(ctx, tx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Wallet{}).
			Where("agent_id = ?", e.AgentID).
			UpdateColumns(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", e.Amount),
				"updated_at": l.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrWalletNotFound
		}
		var err error
		balance, err = l.record(tx, e, domain.DirectionCredit)
		return err
	})
	return balance, err
}

// Adjust books an admin_adjustment; a negative delta debits.
func (l *Ledger) Adjust(ctx context.Context, agentID uuid.UUID, delta int, reason string) (int, error) {
	e := Entry{AgentID: agentID, Type: domain.TxAdminAdjustment, Reason: reason}
	if delta < 0 {
		e.Amount = -delta
		return l.Debit(ctx, nil, e)
	}
	e.Amount = delta
	return l.Credit(ctx, nil, e)
}

// GetBalance returns the current balance for agentID.
func (l *Ledger) GetBalance(ctx context.Context, agentID uuid.UUID) (int, error) {
	return l.balance(l.DB.WithContext(ctx), agentID)
}

// Transactions returns the newest ledger rows for agentID; limit <= 0 means 100.
func (l *Ledger) Transactions(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var txs []domain.WalletTransaction
	if err := l.DB.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// Reconcile checks balance == sum(credits) - sum(debits).
func (l *Ledger) Reconcile(ctx context.Context, agentID uuid.UUID) (*Reconciliation, error) {
	db := l.DB.WithContext(ctx)
	balance, err := l.balance(db, agentID)
	if err != nil {
		return nil, err
	}
	var sum struct {
		Credits int
		Debits  int
	}
	if err := db.Model(&domain.WalletTransaction{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS credits, "+
			"COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS debits",
			domain.DirectionCredit, domain.DirectionDebit).
		Where("agent_id = ?", agentID).
		Scan(&sum).Error; err != nil {
		return nil, err
	}
	ledgerSum := sum.Credits - sum.Debits
	return &Reconciliation{
		AgentID:   agentID,
		Balance:   balance,
		LedgerSum: ledgerSum,
		Drift:     balance - ledgerSum,
	}, nil
}

func (l *Ledger) balance(db *gorm.DB, agentID uuid.UUID) (int, error) {
	var w domain.Wallet
	if err := db.Select("agent_id", "balance").Where("agent_id = ?", agentID).First(&w).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, domain.ErrWalletNotFound
		}
		return 0, err
	}
	return w.Balance, nil
}

func (l *Ledger) record(tx *gorm.DB, e Entry, direction string) (int, error) {
	balance, err := l.balance(tx, e.AgentID)
	if err != nil {
		return 0, err
	}
	row := domain.WalletTransaction{
		AgentID:       e.AgentID,
		Type:          e.Type,
		Direction:     direction,
		Amount:        e.Amount,
		BalanceAfter:  balance,
		Reason:        e.Reason,
		RelatedLeadID: e.RelatedLeadID,
		CreatedAt:     l.now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, err
	}
	return balance, nil
}
