package reports

import (
	reportsvc "leadslot-backend/internal/application/reports"
	"leadslot-backend/internal/middleware"
	"leadslot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *reportsvc.Service
}

// File POST /api/v1/reports
func (h *Handlers) File(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		LeadID     string `json:"lead_id"`
		ReasonCode string `json:"reason_code"`
		Details    string `json:"details"`
	}
	if err := c.BodyParser(&body); err != nil || body.LeadID == "" || body.ReasonCode == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	leadID, err := uuid.Parse(body.LeadID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for lead_id", 400, nil)
	}
	report, err := h.Service.FileReport(c.UserContext(), agentID, leadID, body.ReasonCode, body.Details)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Report filed", report, nil)
}

// List GET /api/v1/reports (admin)
func (h *Handlers) List(c *fiber.Ctx) error {
	items, err := h.Service.ListReports(c.UserContext(), c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reports fetched", items, fiber.Map{"count": len(items)})
}

// Resolve POST /api/v1/reports/:id/resolve (admin)
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid report id", 400, nil)
	}
	var body struct {
		Approve *bool  `json:"approve"`
		Note    string `json:"note"`
	}
	if err := c.BodyParser(&body); err != nil || body.Approve == nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	res, err := h.Service.ResolveReport(c.UserContext(), reportID, *body.Approve, body.Note)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Report resolved", res, nil)
}
