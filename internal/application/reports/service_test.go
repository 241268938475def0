package reports

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"leadslot-backend/internal/application/allocator"
	"leadslot-backend/internal/application/notifications"
	"leadslot-backend/internal/application/unlock"
	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/domain"
	"leadslot-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc    *Service
	unlock *unlock.Service
	db     *gorm.DB
}

func setupReportTest(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	ledger := &wallet.Ledger{DB: db}
	outbox := &notifications.StorePublisher{DB: db}
	return &fixture{
		svc:    &Service{DB: db, Ledger: ledger, Publisher: outbox},
		unlock: &unlock.Service{DB: db, Allocator: allocator.New(0), Ledger: ledger},
		db:     db,
	}
}

func (f *fixture) verifiedAgent(t *testing.T, credits int) uuid.UUID {
	a := domain.Agent{
		FullName:           "Agent",
		Email:              uuid.NewString() + "@agents.test",
		VerificationStatus: domain.VerificationVerified,
		ReferralCode:       uuid.NewString()[:8],
	}
	require.NoError(t, f.db.Create(&a).Error)
	_, err := f.svc.Ledger.Open(context.Background(), nil, a.AgentID)
	require.NoError(t, err)
	_, err = f.svc.Ledger.Credit(context.Background(), nil, wallet.Entry{AgentID: a.AgentID, Amount: credits, Type: domain.TxPurchase})
	require.NoError(t, err)
	return a.AgentID
}

func (f *fixture) freshLead(t *testing.T) uuid.UUID {
	l := domain.Lead{TenantName: "T", City: "Abuja", BasePrice: 250, CreatedAt: time.Now()}
	require.NoError(t, f.db.Create(&l).Error)
	return l.LeadID
}

func TestResolveReport_ApprovalRefundsCostPaidKeepsSlot(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	first := f.verifiedAgent(t, 1000)
	second := f.verifiedAgent(t, 1000)
	_, err := f.unlock.Unlock(ctx, first, leadID, false)
	require.NoError(t, err)
	res, err := f.unlock.Unlock(ctx, second, leadID, false)
	require.NoError(t, err)
	require.Equal(t, 375, res.Price)

	report, err := f.svc.FileReport(ctx, second, leadID, "Wrong_Number", " number disconnected ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)
	assert.Equal(t, "wrong_number", report.ReasonCode)
	assert.Equal(t, res.Contact.ContactID, report.ContactID)

	resolution, err := f.svc.ResolveReport(ctx, report.ReportID, true, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportApproved, resolution.Report.Status)
	assert.Equal(t, 375, resolution.Refunded)
	require.NotNil(t, resolution.Balance)
	assert.Equal(t, 1000, *resolution.Balance)

	var lead domain.Lead
	require.NoError(t, f.db.First(&lead, "lead_id = ?", leadID).Error)
	assert.Equal(t, 2, lead.ClaimedSlots)

	var contact domain.Contact
	require.NoError(t, f.db.First(&contact, "contact_id = ?", report.ContactID).Error)
	assert.True(t, contact.Refunded)
	require.NotNil(t, contact.RefundedAt)

	txs, err := f.svc.Ledger.Transactions(ctx, second, 0)
	require.NoError(t, err)
	var refunds int
	for _, tx := range txs {
		if tx.Type == domain.TxRefundCredit {
			refunds++
			assert.Equal(t, 375, tx.Amount)
			require.NotNil(t, tx.RelatedLeadID)
			assert.Equal(t, leadID, *tx.RelatedLeadID)
		}
	}
	assert.Equal(t, 1, refunds)

	rec, err := f.svc.Ledger.Reconcile(ctx, second)
	require.NoError(t, err)
	assert.Zero(t, rec.Drift)

	var events []domain.NotificationEvent
	require.NoError(t, f.db.Where("type = ?", domain.EventReportResolved).Find(&events).Error)
	require.Len(t, events, 1)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, domain.ReportApproved, payload["status"])
	assert.EqualValues(t, 375, payload["refunded"])
}

func TestResolveReport_RejectionHasNoLedgerEffect(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	agentID := f.verifiedAgent(t, 1000)
	_, err := f.unlock.Unlock(ctx, agentID, leadID, false)
	require.NoError(t, err)

	report, err := f.svc.FileReport(ctx, agentID, leadID, "unresponsive", "")
	require.NoError(t, err)
	resolution, err := f.svc.ResolveReport(ctx, report.ReportID, false, "tenant replied")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportRejected, resolution.Report.Status)
	assert.Zero(t, resolution.Refunded)
	assert.Nil(t, resolution.Balance)

	balance, err := f.svc.Ledger.GetBalance(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, 750, balance)
}

func TestResolveReport_OnlyOnce(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	agentID := f.verifiedAgent(t, 1000)
	_, err := f.unlock.Unlock(ctx, agentID, leadID, false)
	require.NoError(t, err)
	report, err := f.svc.FileReport(ctx, agentID, leadID, "fake", "")
	require.NoError(t, err)

	_, err = f.svc.ResolveReport(ctx, report.ReportID, true, "")
	require.NoError(t, err)
	_, err = f.svc.ResolveReport(ctx, report.ReportID, true, "")
	assert.ErrorIs(t, err, domain.ErrReportAlreadyResolved)
	_, err = f.svc.ResolveReport(ctx, report.ReportID, false, "")
	assert.ErrorIs(t, err, domain.ErrReportAlreadyResolved)

	balance, err := f.svc.Ledger.GetBalance(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, 1000, balance)

	_, err = f.svc.ResolveReport(ctx, uuid.New(), true, "")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestFileReport_Validation(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	agentID := f.verifiedAgent(t, 1000)

	_, err := f.svc.FileReport(ctx, agentID, leadID, "wrong_number", "")
	assert.ErrorIs(t, err, domain.ErrContactNotFound, "no unlock yet")

	_, err = f.unlock.Unlock(ctx, agentID, leadID, false)
	require.NoError(t, err)

	_, err = f.svc.FileReport(ctx, agentID, leadID, "bad_vibes", "")
	assert.ErrorIs(t, err, domain.ErrInvalidReason)

	report, err := f.svc.FileReport(ctx, agentID, leadID, "already_rented", "")
	require.NoError(t, err)
	_, err = f.svc.FileReport(ctx, agentID, leadID, "fake", "")
	assert.ErrorIs(t, err, domain.ErrDuplicateReport)

	_, err = f.svc.ResolveReport(ctx, report.ReportID, true, "")
	require.NoError(t, err)
	_, err = f.svc.FileReport(ctx, agentID, leadID, "fake", "")
	assert.ErrorIs(t, err, domain.ErrContactNotFound, "refunded contacts cannot be reported again")
}

func TestFileReport_RejectedReportCanBeRefiled(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	agentID := f.verifiedAgent(t, 1000)
	_, err := f.unlock.Unlock(ctx, agentID, leadID, false)
	require.NoError(t, err)

	report, err := f.svc.FileReport(ctx, agentID, leadID, "unresponsive", "")
	require.NoError(t, err)
	_, err = f.svc.ResolveReport(ctx, report.ReportID, false, "")
	require.NoError(t, err)

	_, err = f.svc.FileReport(ctx, agentID, leadID, "wrong_number", "second attempt")
	assert.NoError(t, err)
}

func TestListReports(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	agentID := f.verifiedAgent(t, 5000)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		leadID := f.freshLead(t)
		_, err := f.unlock.Unlock(ctx, agentID, leadID, false)
		require.NoError(t, err)
		r, err := f.svc.FileReport(ctx, agentID, leadID, "other", "")
		require.NoError(t, err)
		ids = append(ids, r.ReportID)
	}
	_, err := f.svc.ResolveReport(ctx, ids[0], false, "")
	require.NoError(t, err)

	all, err := f.svc.ListReports(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := f.svc.ListReports(ctx, domain.ReportPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.ListReports(ctx, "archived")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestFileReport_ConcurrentFilingsOpenOneReport(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	agentID := f.verifiedAgent(t, 1000)
	_, err := f.unlock.Unlock(ctx, agentID, leadID, false)
	require.NoError(t, err)

	const n = 5
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.FileReport(ctx, agentID, leadID, "fake", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	filed := 0
	for err := range errs {
		if err == nil {
			filed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateReport)
	}
	assert.Equal(t, 1, filed)

	var pending int64
	require.NoError(t, f.db.Model(&domain.Report{}).
		Where("reporter_id = ? AND lead_id = ? AND status = ?", agentID, leadID, domain.ReportPending).
		Count(&pending).Error)
	assert.EqualValues(t, 1, pending)
}

func TestResolveReport_ApprovalOfRefundedContactRejects(t *testing.T) {
	f := setupReportTest(t)
	ctx := context.Background()
	leadID := f.freshLead(t)
	agentID := f.verifiedAgent(t, 1000)
	_, err := f.unlock.Unlock(ctx, agentID, leadID, false)
	require.NoError(t, err)
	report, err := f.svc.FileReport(ctx, agentID, leadID, "wrong_number", "")
	require.NoError(t, err)

	// Refunded through another channel while the report sat pending.
	require.NoError(t, f.db.Model(&domain.Contact{}).
		Where("contact_id = ?", report.ContactID).
		Update("refunded", true).Error)

	resolution, err := f.svc.ResolveReport(ctx, report.ReportID, true, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportRejected, resolution.Report.Status)
	assert.Equal(t, "confirmed; contact already refunded", resolution.Report.ResolutionNote)
	assert.Zero(t, resolution.Refunded)
	assert.Nil(t, resolution.Balance)

	var stored domain.Report
	require.NoError(t, f.db.Where("report_id = ?", report.ReportID).First(&stored).Error)
	assert.Equal(t, domain.ReportRejected, stored.Status, "the report no longer sits pending")

	rec, err := f.svc.Ledger.Reconcile(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, 750, rec.Balance)
	assert.Zero(t, rec.Drift)

	_, err = f.svc.ResolveReport(ctx, report.ReportID, true, "")
	assert.ErrorIs(t, err, domain.ErrReportAlreadyResolved)
}
