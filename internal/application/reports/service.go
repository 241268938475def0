package reports

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
	"gorm.io/gorm/clause"
)

type Service struct {
	DB        *gorm.DB
	Ledger    *wallet.Ledger
	Publisher notifications.Publisher
	Now       func() time.Time
}

// Resolution is the outcome of ResolveReport. Refunded is zero for rejections.
type Resolution struct {
	Report   domain.Report `json:"report"`
	Refunded int           `json:"refunded"`
	Balance  *int          `json:"balance,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FileReport opens a dispute on a lead agentID unlocked and has not been refunded for.
func (s *Service) FileReport(ctx context.Context, agentID, leadID uuid.UUID, reasonCode, details string) (*domain.Report, error) {
	reasonCode = strings.ToLower(strings.TrimSpace(reasonCode))
	if !domain.IsValidReasonCode(reasonCode) {
		return nil, domain.ErrInvalidReason
	}

	var report domain.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock on the contact serializes concurrent filings for the same pair.
		var contact domain.Contact
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_id = ? AND lead_id = ? AND refunded = ?", agentID, leadID, false).
			First(&contact).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrContactNotFound
			}
			return err
		}

		var open int64
		if err := tx.Model(&domain.Report{}).
			Where("reporter_id = ? AND lead_id = ? AND status = ?", agentID, leadID, domain.ReportPending).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrDuplicateReport
		}

		now := s.now()
		report = domain.Report{
			ReporterID: agentID,
			LeadID:     leadID,
			ContactID:  contact.ContactID,
			ReasonCode: reasonCode,
			Details:    strings.TrimSpace(details),
			Status:     domain.ReportPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
				return domain.ErrDuplicateReport
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("report_id", report.ReportID.String()).Str("lead_id", leadID.String()).Str("reason", reasonCode).Msg("lead report filed")
	return &report, nil
}

// ResolveReport approves or rejects a pending report. Approval refunds the contact's
// cost_paid; the slot stays sold.
func (s *Service) ResolveReport(ctx context.Context, reportID uuid.UUID, approve bool, note string) (*Resolution, error) {
	var out Resolution
	now := s.now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report domain.Report
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("report_id = ?", reportID).First(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrReportNotFound
			}
			return err
		}

		resolutionNote := strings.TrimSpace(note)
		var contact domain.Contact
		if approve {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("contact_id = ?", report.ContactID).First(&contact).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrContactNotFound
				}
				return err
			}
			// A contact refunded through another report closes this one without a second credit.
			if contact.Refunded {
				approve = false
				resolutionNote = joinNote(resolutionNote, contactAlreadyRefundedNote)
			}
		}

		status := domain.ReportRejected
		if approve {
			status = domain.ReportApproved
		}
		res := tx.Model(&domain.Report{}).
			Where("report_id = ? AND status = ?", reportID, domain.ReportPending).
			UpdateColumns(map[string]interface{}{
				"status":          status,
				"resolution_note": resolutionNote,
				"resolved_at":     now,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrReportAlreadyResolved
		}
		report.Status = status
		report.ResolutionNote = resolutionNote
		report.ResolvedAt = &now
		report.UpdatedAt = now
		out.Report = report

		if !approve {
			return nil
		}

		flip := tx.Model(&domain.Contact{}).
			Where("contact_id = ? AND refunded = ?", contact.ContactID, false).
			UpdateColumns(map[string]interface{}{"refunded": true, "refunded_at": now})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return domain.ErrReportAlreadyResolved
		}

		leadID := contact.LeadID
		balance, err := s.Ledger.Credit(ctx, tx, wallet.Entry{
			AgentID:       contact.AgentID,
			Amount:        contact.CostPaid,
			Type:          domain.TxRefundCredit,
			Reason:        "lead report approved: " + report.ReasonCode,
			RelatedLeadID: &leadID,
		})
		if err != nil {
			return err
		}
		out.Refunded = contact.CostPaid
		out.Balance = &balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("report_id", reportID.String()).Str("status", out.Report.Status).Int("refunded", out.Refunded).Msg("lead report resolved")
	notifications.Emit(ctx, s.Publisher, domain.EventReportResolved, map[string]interface{}{
		"report_id":   reportID.String(),
		"reporter_id": out.Report.ReporterID.String(),
		"lead_id":     out.Report.LeadID.String(),
		"status":      out.Report.Status,
		"refunded":    out.Refunded,
	})
	return &out, nil
}

const contactAlreadyRefundedNote = "contact already refunded"

func joinNote(note, suffix string) string {
	if note == "" {
		return suffix
	}
	return note + "; " + suffix
}

// ListReports returns reports newest first, optionally filtered by status.
func (s *Service) ListReports(ctx context.Context, status string) ([]domain.Report, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		switch status {
		case domain.ReportPending, domain.ReportApproved, domain.ReportRejected:
		default:
			return nil, domain.ErrInvalidStatus
		}
		q = q.Where("status = ?", status)
	}
	var out []domain.Report
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
