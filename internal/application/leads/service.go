package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"leadslot-backend/internal/domain"
	"leadslot-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type Service struct {
	DB        *gorm.DB
	BasePrice int
	MaxSlots  int
	Window    time.Duration
	Now       func() time.Time
}

// LeadInput is an intake payload. Intake forms send the same field either flat or
// nested under requirements; Ingest reads both and prefers the flat value.
type LeadInput struct {
	TenantName   string                 `json:"tenant_name"`
	Name         string                 `json:"name"`
	TenantEmail  string                 `json:"tenant_email"`
	Email        string                 `json:"email"`
	TenantPhone  string                 `json:"tenant_phone"`
	Phone        string                 `json:"phone"`
	City         string                 `json:"city"`
	Location     string                 `json:"location"`
	PropertyType string                 `json:"property_type"`
	Bedrooms     *int                   `json:"bedrooms"`
	BudgetMin    *int                   `json:"budget_min"`
	BudgetMax    *int                   `json:"budget_max"`
	Budget       *int                   `json:"budget"`
	MoveInDate   string                 `json:"move_in_date"`
	BasePrice    int                    `json:"base_price"`
	Requirements map[string]interface{} `json:"requirements"`
}

// ListFilter narrows ListOpen.
type ListFilter struct {
	City   string
	Limit  int
	Offset int
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return 48 * time.Hour
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidLead, fmt.Sprintf(format, args...))
}

// Normalize maps in onto the canonical lead shape without touching the database.
func (s *Service) Normalize(in LeadInput) (*domain.Lead, error) {
	req := in.Requirements
	if req == nil {
		req = map[string]interface{}{}
	}

	lead := &domain.Lead{
		TenantName:   firstNonEmpty(in.TenantName, in.Name, reqString(req, "tenant_name"), reqString(req, "name")),
		TenantEmail:  strings.ToLower(firstNonEmpty(in.TenantEmail, in.Email, reqString(req, "email"))),
		TenantPhone:  validation.NormalizePhone(firstNonEmpty(in.TenantPhone, in.Phone, reqString(req, "phone"))),
		City:         firstNonEmpty(in.City, in.Location, reqString(req, "city"), reqString(req, "location")),
		PropertyType: strings.ToLower(firstNonEmpty(in.PropertyType, reqString(req, "property_type"))),
		Bedrooms:     firstInt(in.Bedrooms, reqInt(req, "bedrooms")),
		BudgetMin:    firstInt(in.BudgetMin, reqInt(req, "budget_min")),
		BudgetMax:    firstInt(in.BudgetMax, in.Budget, reqInt(req, "budget_max"), reqInt(req, "budget")),
		BasePrice:    in.BasePrice,
		MaxSlots:     s.MaxSlots,
		Status:       domain.LeadStatusActive,
	}

	if !validation.IsValidFullname(lead.TenantName) {
		return nil, invalid("tenant name is required")
	}
	if lead.City == "" {
		return nil, invalid("city is required")
	}
	if lead.TenantEmail == "" && lead.TenantPhone == "" {
		return nil, invalid("an email or phone number is required")
	}
	if lead.TenantEmail != "" && !validation.IsValidEmail(lead.TenantEmail) {
		return nil, invalid("email is invalid")
	}
	if lead.TenantPhone != "" && !validation.IsValidPhone(lead.TenantPhone) {
		return nil, invalid("phone number is invalid")
	}
	if lead.Bedrooms != nil && *lead.Bedrooms < 0 {
		return nil, invalid("bedrooms cannot be negative")
	}
	if lead.BudgetMin != nil && lead.BudgetMax != nil && *lead.BudgetMin > *lead.BudgetMax {
		return nil, invalid("budget_min exceeds budget_max")
	}

	if raw := firstNonEmpty(in.MoveInDate, reqString(req, "move_in_date")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return nil, invalid("move_in_date must be YYYY-MM-DD")
		}
		lead.MoveInDate = &d
	}

	if lead.BasePrice < 0 {
		return nil, invalid("base_price cannot be negative")
	}
	if lead.BasePrice == 0 {
		lead.BasePrice = s.BasePrice
	}
	if lead.BasePrice == 0 {
		lead.BasePrice = 250
	}
	if lead.MaxSlots <= 0 {
		lead.MaxSlots = domain.DefaultMaxSlots
	}

	if len(req) > 0 {
		b, err := json.Marshal(req)
		if err != nil {
			return nil, invalid("requirements are not valid JSON")
		}
		lead.Requirements = datatypes.JSON(b)
	}
	return lead, nil
}

// Ingest normalizes and stores a new lead.
func (s *Service) Ingest(ctx context.Context, in LeadInput) (*domain.Lead, error) {
	lead, err := s.Normalize(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if err := s.DB.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, err
	}
	log.Info().Str("lead_id", lead.LeadID.String()).Str("city", lead.City).Int("base_price", lead.BasePrice).Msg("lead ingested")
	return lead, nil
}

func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	if err := s.DB.WithContext(ctx).Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// ListOpen returns active leads still inside the freshness window, newest first.
// Sold-out and exclusive leads are included so callers can show them as such.
// Leads past the window are marked expired on the way.
func (s *Service) ListOpen(ctx context.Context, f ListFilter) ([]domain.Lead, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	if n, err := s.ExpireStale(ctx); err != nil {
		log.Warn().Err(err).Msg("lead expiry on read failed")
	} else if n > 0 {
		log.Info().Int64("expired", n).Msg("leads expired")
	}
	cutoff := s.now().Add(-s.window())
	q := s.DB.WithContext(ctx).
		Where("status = ? AND created_at >= ?", domain.LeadStatusActive, cutoff).
		Order("created_at DESC").
		Limit(limit).
		Offset(f.Offset)
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	var out []domain.Lead
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus changes a lead's lifecycle status. Slot state is untouched.
func (s *Service) SetStatus(ctx context.Context, leadID uuid.UUID, status string) (*domain.Lead, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsValidLeadStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	res := s.DB.WithContext(ctx).Model(&domain.Lead{}).Where("lead_id = ?", leadID).
		UpdateColumns(map[string]interface{}{"status": status, "updated_at": s.now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrLeadNotFound
	}
	return s.Get(ctx, leadID)
}

// RecordView bumps the view counter. Failures are logged only.
func (s *Service) RecordView(ctx context.Context, leadID uuid.UUID) {
	if err := s.DB.WithContext(ctx).Model(&domain.Lead{}).Where("lead_id = ?", leadID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		log.Warn().Err(err).Str("lead_id", leadID.String()).Msg("record lead view failed")
	}
}

// ExpireStale marks active leads older than the window as expired and returns how many
// changed.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now()
	res := s.DB.WithContext(ctx).Model(&domain.Lead{}).
		Where("status = ? AND created_at < ?", domain.LeadStatusActive, now.Add(-s.window())).
		UpdateColumns(map[string]interface{}{"status": domain.LeadStatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func reqString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func reqInt(m map[string]interface{}, key string) *int {
	var n int
	switch v := m[key].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
