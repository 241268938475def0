package wallets

import (
	"strconv"
	"strings"

	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/middleware"
	"leadslot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxTopUpCredits = 100000

type Handlers struct {
	Ledger           *wallet.Ledger
	StripeCreator    StripePaymentIntentCreator
	Currency         string
	CreditPriceCents int64
}

// Balance GET /api/v1/wallets/balance
func (h *Handlers) Balance(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	balance, err := h.Ledger.GetBalance(c.UserContext(), agentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Balance fetched", fiber.Map{"agent_id": agentID, "balance": balance}, nil)
}

// Transactions GET /api/v1/wallets/transactions
func (h *Handlers) Transactions(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	txs, err := h.Ledger.Transactions(c.UserContext(), agentID, c.QueryInt("limit", 0))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transactions fetched", txs, fiber.Map{"count": len(txs)})
}

// TopUp POST /api/v1/wallets/top-up. Only creates the PaymentIntent; credits land when
// the webhook confirms payment.
func (h *Handlers) TopUp(c *fiber.Ctx) error {
	agentID, ok := middleware.CurrentAgentID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		Credits int `json:"credits"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.Credits <= 0 || body.Credits > maxTopUpCredits {
		return response.Error(c, "Credits must be between 1 and "+strconv.Itoa(maxTopUpCredits), 400, nil)
	}
	if h.StripeCreator == nil {
		return response.Error(c, "Stripe not configured", 500, nil)
	}

	price := h.CreditPriceCents
	if price <= 0 {
		price = 100
	}
	currency := strings.ToLower(h.Currency)
	if currency == "" {
		currency = "usd"
	}
	pi, err := h.StripeCreator.Create(int64(body.Credits)*price, currency, map[string]string{
		"agent_id": agentID.String(),
		"credits":  strconv.Itoa(body.Credits),
	})
	if err != nil {
		code := 500
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		return response.Error(c, err.Error(), code, nil)
	}
	return response.Success(c, "Payment intent created", fiber.Map{
		"payment_intent_id": pi.ID,
		"client_secret":     pi.ClientSecret,
		"credits":           body.Credits,
		"amount_cents":      int64(body.Credits) * price,
		"currency":          currency,
	}, nil)
}

// Adjust POST /api/v1/wallets/adjust (admin). A negative delta debits.
func (h *Handlers) Adjust(c *fiber.Ctx) error {
	var body struct {
		AgentID string `json:"agent_id"`
		Delta   int    `json:"delta"`
		Reason  string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil || body.AgentID == "" || body.Delta == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	agentID, err := uuid.Parse(body.AgentID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for agent_id", 400, nil)
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		return response.Error(c, "Reason is required", 400, nil)
	}
	balance, err := h.Ledger.Adjust(c.UserContext(), agentID, body.Delta, reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet adjusted", fiber.Map{"agent_id": agentID, "balance": balance}, nil)
}

// Reconcile GET /api/v1/wallets/:agentId/reconcile (admin)
func (h *Handlers) Reconcile(c *fiber.Ctx) error {
	agentID, err := uuid.Parse(c.Params("agentId"))
	if err != nil {
		return response.Error(c, "Invalid agent id", 400, nil)
	}
	rec, err := h.Ledger.Reconcile(c.UserContext(), agentID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet reconciled", rec, nil)
}
