package unlocks

import (
	"leadslot-backend/internal/application/unlock"
	"leadslot-backend/internal/middleware"
	"leadslot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *unlock.Service
}

// Unlock POST /api/v1/unlocks. A repeat by the slot holder answers 200 with the
// original record instead of 201.
func (h *Handlers) Unlock(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		LeadID    string `json:"lead_id"`
		Exclusive bool   `json:"exclusive"`
	}
	if err := c.BodyParser(&body); err != nil || body.LeadID == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	leadID, err := uuid.Parse(body.LeadID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for lead_id", 400, nil)
	}

	res, err := h.Service.Unlock(c.UserContext(), agentID, leadID, body.Exclusive)
	if err != nil {
		return response.FromError(c, err)
	}
	if res.AlreadyUnlocked {
		return response.Success(c, "Lead already unlocked", res, nil)
	}
	return response.SuccessCreated(c, "Lead unlocked", res, nil)
}

// List GET /api/v1/unlocks
func (h *Handlers) List(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	items, err := h.Service.ListUnlocked(c.UserContext(), agentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Unlocked leads fetched", items, fiber.Map{"count": len(items)})
}

// Quote GET /api/v1/unlocks/quote/:leadId
func (h *Handlers) Quote(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	leadID, err := uuid.Parse(c.Params("leadId"))
	if err != nil {
		return response.Error(c, "Invalid lead id", 400, nil)
	}
	q, err := h.Service.Quote(c.UserContext(), agentID, leadID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Quote fetched", q, nil)
}
