package referrals

import (
	refsvc "leadslot-backend/internal/application/referrals"
	"leadslot-backend/internal/middleware"
	"leadslot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *refsvc.Service
}

// Stats GET /api/v1/referrals/stats
func (h *Handlers) Stats(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	stats, err := h.Service.Stats(c.UserContext(), agentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Referral stats fetched", stats, nil)
}
