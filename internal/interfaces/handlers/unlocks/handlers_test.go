package unlocks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"leadslot-backend/internal/application/allocator"
	"leadslot-backend/internal/application/unlock"
	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/domain"
	"leadslot-backend/internal/infrastructure/database"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUnlockHandlers(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	svc := &unlock.Service{DB: db, Allocator: allocator.New(0), Ledger: &wallet.Ledger{DB: db}}
	return &Handlers{Service: svc}, db
}

func seedAgent(t *testing.T, h *Handlers, verification string, credits int) uuid.UUID {
	a := domain.Agent{
		FullName:           "Agent",
		Email:              uuid.NewString() + "@agents.test",
		VerificationStatus: verification,
		ReferralCode:       uuid.NewString()[:8],
	}
	require.NoError(t, h.Service.DB.Create(&a).Error)
	ctx := context.Background()
	_, err := h.Service.Ledger.Open(ctx, nil, a.AgentID)
	require.NoError(t, err)
	if credits > 0 {
		_, err = h.Service.Ledger.Credit(ctx, nil, wallet.Entry{AgentID: a.AgentID, Amount: credits, Type: domain.TxPurchase})
		require.NoError(t, err)
	}
	return a.AgentID
}

func seedLead(t *testing.T, db *gorm.DB, maxSlots int) uuid.UUID {
	l := domain.Lead{TenantName: "Ada", TenantPhone: "+2348000000000", City: "Lagos", BasePrice: 250, MaxSlots: maxSlots, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&l).Error)
	return l.LeadID
}

func appAs(h *Handlers, agentID *uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if agentID != nil {
			c.Locals("user", map[string]interface{}{"agent_id": agentID.String(), "role": "agent"})
		}
		return c.Next()
	})
	app.Post("/unlocks", h.Unlock)
	app.Get("/unlocks", h.List)
	app.Get("/unlocks/quote/:leadId", h.Quote)
	return app
}

func postUnlock(t *testing.T, app *fiber.App, body map[string]interface{}) (int, map[string]interface{}) {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/unlocks", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestUnlock_CreatedThenIdempotent(t *testing.T) {
	h, db := setupUnlockHandlers(t)
	agentID := seedAgent(t, h, domain.VerificationVerified, 1000)
	leadID := seedLead(t, db, 3)
	app := appAs(h, &agentID)

	code, out := postUnlock(t, app, map[string]interface{}{"lead_id": leadID.String()})
	assert.Equal(t, fiber.StatusCreated, code)
	data := out["data"].(map[string]interface{})
	assert.EqualValues(t, 250, data["price"])
	assert.EqualValues(t, 750, data["balance"])
	assert.Equal(t, false, data["already_unlocked"])

	code, out = postUnlock(t, app, map[string]interface{}{"lead_id": leadID.String()})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, out["data"].(map[string]interface{})["already_unlocked"])
	assert.Equal(t, "Lead already unlocked", out["message"])
}

func TestUnlock_ErrorMapping(t *testing.T) {
	h, db := setupUnlockHandlers(t)
	leadID := seedLead(t, db, 1)

	pending := seedAgent(t, h, domain.VerificationPending, 1000)
	code, _ := postUnlock(t, appAs(h, &pending), map[string]interface{}{"lead_id": leadID.String()})
	assert.Equal(t, fiber.StatusForbidden, code)

	poor := seedAgent(t, h, domain.VerificationVerified, 10)
	code, out := postUnlock(t, appAs(h, &poor), map[string]interface{}{"lead_id": leadID.String()})
	assert.Equal(t, fiber.StatusPaymentRequired, code)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, "/api/v1/wallets/top-up", details["top_up_path"])

	winner := seedAgent(t, h, domain.VerificationVerified, 1000)
	code, _ = postUnlock(t, appAs(h, &winner), map[string]interface{}{"lead_id": leadID.String()})
	require.Equal(t, fiber.StatusCreated, code)

	late := seedAgent(t, h, domain.VerificationVerified, 1000)
	code, out = postUnlock(t, appAs(h, &late), map[string]interface{}{"lead_id": leadID.String()})
	assert.Equal(t, fiber.StatusConflict, code)
	details = out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, domain.ReasonSoldOut, details["reason"])

	code, _ = postUnlock(t, appAs(h, &late), map[string]interface{}{"lead_id": uuid.NewString()})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestUnlock_BadRequests(t *testing.T) {
	h, _ := setupUnlockHandlers(t)
	agentID := seedAgent(t, h, domain.VerificationVerified, 1000)

	code, _ := postUnlock(t, appAs(h, nil), map[string]interface{}{"lead_id": uuid.NewString()})
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = postUnlock(t, appAs(h, &agentID), map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = postUnlock(t, appAs(h, &agentID), map[string]interface{}{"lead_id": "not-a-uuid"})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestList_RevealsContactAfterUnlock(t *testing.T) {
	h, db := setupUnlockHandlers(t)
	agentID := seedAgent(t, h, domain.VerificationVerified, 1000)
	leadID := seedLead(t, db, 3)
	app := appAs(h, &agentID)
	code, _ := postUnlock(t, app, map[string]interface{}{"lead_id": leadID.String()})
	require.Equal(t, fiber.StatusCreated, code)

	resp, err := app.Test(httptest.NewRequest("GET", "/unlocks", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	items := out["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "+2348000000000", items[0].(map[string]interface{})["tenant_phone"])
}

func TestQuote(t *testing.T) {
	h, db := setupUnlockHandlers(t)
	agentID := seedAgent(t, h, domain.VerificationVerified, 0)
	leadID := seedLead(t, db, 3)
	app := appAs(h, &agentID)

	resp, err := app.Test(httptest.NewRequest("GET", "/unlocks/quote/"+leadID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].(map[string]interface{})
	assert.EqualValues(t, 250, data["price"])
	assert.EqualValues(t, 1063, data["exclusive_price"])
	assert.Equal(t, "open", data["market_status"])

	resp, err = app.Test(httptest.NewRequest("GET", "/unlocks/quote/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
