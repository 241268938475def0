package leads

import (
	"time"

	"leadslot-backend/internal/application/allocator"
	leadsvc "leadslot-backend/internal/application/leads"
	"leadslot-backend/internal/domain"
	"leadslot-backend/internal/middleware"
	"leadslot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service   *leadsvc.Service
	Allocator *allocator.Allocator
	Now       func() time.Time
}

// LeadView is a lead as shown before unlock: no tenant contact details, plus a quote
// for the viewing agent.
type LeadView struct {
	domain.Lead
	Quote allocator.Quote `json:"quote"`
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) view(c *fiber.Ctx, l domain.Lead) LeadView {
	agentID, _ := middleware.CurrentAgentID(c)
	return LeadView{Lead: l, Quote: h.Allocator.Quote(&l, agentID, h.now())}
}

// Ingest POST /api/v1/leads
func (h *Handlers) Ingest(c *fiber.Ctx) error {
	var in leadsvc.LeadInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	lead, err := h.Service.Ingest(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Lead received", fiber.Map{
		"lead_id":    lead.LeadID,
		"status":     lead.Status,
		"created_at": lead.CreatedAt,
	}, nil)
}

// List GET /api/v1/leads
func (h *Handlers) List(c *fiber.Ctx) error {
	items, err := h.Service.ListOpen(c.UserContext(), leadsvc.ListFilter{
		City:   c.Query("city"),
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	out := make([]LeadView, 0, len(items))
	for _, l := range items {
		out = append(out, h.view(c, l))
	}
	return response.Success(c, "Leads fetched", out, fiber.Map{"count": len(out)})
}

// Get GET /api/v1/leads/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid lead id", 400, nil)
	}
	lead, err := h.Service.Get(c.UserContext(), leadID)
	if err != nil {
		return response.FromError(c, err)
	}
	h.Service.RecordView(c.UserContext(), leadID)
	return response.Success(c, "Lead fetched", h.view(c, *lead), nil)
}

// SetStatus PATCH /api/v1/leads/:id/status
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid lead id", 400, nil)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	lead, err := h.Service.SetStatus(c.UserContext(), leadID, body.Status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Lead status updated", lead, nil)
}
