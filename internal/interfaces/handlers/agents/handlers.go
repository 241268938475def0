package agents

import (
	agentsvc "leadslot-backend/internal/application/agents"
	"leadslot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *agentsvc.Service
}

// Onboard POST /api/v1/agents
func (h *Handlers) Onboard(c *fiber.Ctx) error {
	var in agentsvc.OnboardInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	res, err := h.Service.Onboard(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Agent created", res, nil)
}

// SetVerification PATCH /api/v1/agents/:id/verification (admin)
func (h *Handlers) SetVerification(c *fiber.Ctx) error {
	agentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid agent id", 400, nil)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	agent, err := h.Service.SetVerification(c.UserContext(), agentID, body.Status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Verification updated", agent, nil)
}

// Activate POST /api/v1/agents/:id/activate (admin)
func (h *Handlers) Activate(c *fiber.Ctx) error {
	agentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid agent id", 400, nil)
	}
	res, err := h.Service.Activate(c.UserContext(), agentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Agent activated", res, nil)
}
