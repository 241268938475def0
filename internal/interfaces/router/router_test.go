package router

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadslot-backend/internal/config"
	"leadslot-backend/internal/infrastructure/database"
	"leadslot-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		StripeCurrency:   "usd",
		CreditPriceCents: 100,
		HealthAdminKey:   "secret",
		NotifyQueueKey:   "notifications:outbound",
		Market: config.Market{
			ReferralBonus:     5,
			LeadBasePrice:     250,
			LeadMaxSlots:      3,
			UnlockWindow:      48 * time.Hour,
			UnlockMaxAttempts: 3,
		},
	}
	return Mount(cfg, db, rdb), mr
}

func login(t *testing.T, mr *miniredis.Miniredis, role string) string {
	sid := uuid.NewString()
	b, err := json.Marshal(map[string]interface{}{
		"user": map[string]interface{}{"agent_id": uuid.NewString(), "role": role},
	})
	require.NoError(t, err)
	require.NoError(t, mr.Set(middleware.SessionRedisPrefix+sid, string(b)))
	return sid
}

func request(t *testing.T, app *fiber.App, method, path, sid string, body interface{}) int {
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.Header.Set("Cookie", middleware.SessionCookieName+"="+sid)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	app, mr := setupApp(t)

	code := request(t, app, "POST", "/api/v1/leads", "", map[string]interface{}{
		"tenant_name": "Ada Obi", "email": "ada@tenants.test", "city": "Lagos",
	})
	assert.Equal(t, fiber.StatusCreated, code, "lead intake is public")

	code = request(t, app, "POST", "/api/v1/agents", "", map[string]interface{}{
		"full_name": "Bola Ade", "email": "bola@agents.test",
	})
	assert.Equal(t, fiber.StatusCreated, code, "onboarding is public")

	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "GET", "/api/v1/leads", "", nil))
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "GET", "/api/v1/wallets/balance", "", nil))

	agent := login(t, mr, "agent")
	assert.Equal(t, fiber.StatusOK, request(t, app, "GET", "/api/v1/leads", agent, nil))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "GET", "/api/v1/reports", agent, nil))
	assert.Equal(t, fiber.StatusForbidden,
		request(t, app, "PATCH", "/api/v1/leads/"+uuid.NewString()+"/status", agent, map[string]interface{}{"status": "closed"}))

	admin := login(t, mr, "admin")
	assert.Equal(t, fiber.StatusOK, request(t, app, "GET", "/api/v1/reports", admin, nil))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "POST", "/api/v1/unlocks", admin, map[string]interface{}{"lead_id": uuid.NewString()}))
}

func TestHealthAndWebhookRoutes(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest("POST", "/api/v1/stripe/webhook", strings.NewReader(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
