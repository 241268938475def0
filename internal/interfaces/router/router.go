package router

import (
	"net/http"

	agentsvc "leadslot-backend/internal/application/agents"
	"leadslot-backend/internal/application/allocator"
	leadsvc "leadslot-backend/internal/application/leads"
	"leadslot-backend/internal/application/notifications"
	refsvc "leadslot-backend/internal/application/referrals"
	reportsvc "leadslot-backend/internal/application/reports"
	"leadslot-backend/internal/application/unlock"
	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/config"
	"leadslot-backend/internal/infrastructure/database"
	agenthandler "leadslot-backend/internal/interfaces/handlers/agents"
	healthhandler "leadslot-backend/internal/interfaces/handlers/health"
	leadhandler "leadslot-backend/internal/interfaces/handlers/leads"
	payhandler "leadslot-backend/internal/interfaces/handlers/payments"
	refhandler "leadslot-backend/internal/interfaces/handlers/referrals"
	reporthandler "leadslot-backend/internal/interfaces/handlers/reports"
	unlockhandler "leadslot-backend/internal/interfaces/handlers/unlocks"
	wallethandler "leadslot-backend/internal/interfaces/handlers/wallets"
	"leadslot-backend/internal/middleware"
	"leadslot-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp opens Postgres and Redis from cfg and mounts every route.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redis.NewClient(opt)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return Mount(cfg, db, rdb), db, rdb, nil
}

// Mount builds the Fiber app over existing connections.
func Mount(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	market := cfg.Market
	ledger := &wallet.Ledger{DB: db, StartingBalance: market.StartingBalance}
	alloc := allocator.New(market.UnlockWindow)
	publisher := notifications.Fanout{
		&notifications.RedisPublisher{Rdb: rdb, QueueKey: cfg.NotifyQueueKey},
		&notifications.StorePublisher{DB: db},
	}

	// Stripe signs the raw body; the webhook sits before the session layer.
	stripeWebhook := &payhandler.WebhookHandler{DB: db, Ledger: ledger, WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", stripeWebhook.HandleWebhook)

	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.SessionWithClient(rdb))

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		HealthAdminKey: cfg.HealthAdminKey,
		QueueKey:       cfg.NotifyQueueKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	unlocks := &unlock.Service{
		DB:          db,
		Allocator:   alloc,
		Ledger:      ledger,
		Publisher:   publisher,
		MaxAttempts: market.UnlockMaxAttempts,
	}
	referrals := &refsvc.Service{DB: db, Ledger: ledger, Publisher: publisher, Bonus: market.ReferralBonus}
	reports := &reportsvc.Service{DB: db, Ledger: ledger, Publisher: publisher}
	leads := &leadsvc.Service{DB: db, BasePrice: market.LeadBasePrice, MaxSlots: market.LeadMaxSlots, Window: market.UnlockWindow}
	agents := &agentsvc.Service{DB: db, Ledger: ledger, Referrals: referrals}

	v1 := app.Group("/api/v1")

	// Leads
	lh := &leadhandler.Handlers{Service: leads, Allocator: alloc}
	v1.Post("/leads", lh.Ingest)
	lg := v1.Group("/leads", middleware.RequireAuth())
	lg.Get("/", middleware.AuthorizePermission(constants.ViewLeads), lh.List)
	lg.Get("/:id", middleware.AuthorizePermission(constants.ViewLeads), lh.Get)
	lg.Patch("/:id/status", middleware.AuthorizePermission(constants.ManageLeads), lh.SetStatus)

	// Unlocks
	uh := &unlockhandler.Handlers{Service: unlocks}
	ug := v1.Group("/unlocks", middleware.RequireAuth())
	ug.Post("/", middleware.AuthorizePermission(constants.UnlockLeads), uh.Unlock)
	ug.Get("/", middleware.AuthorizePermission(constants.UnlockLeads), uh.List)
	ug.Get("/quote/:leadId", middleware.AuthorizePermission(constants.UnlockLeads), uh.Quote)

	// Wallets
	wh := &wallethandler.Handlers{
		Ledger:           ledger,
		StripeCreator:    &wallethandler.RealStripeCreator{SecretKey: cfg.StripeSecretKey},
		Currency:         cfg.StripeCurrency,
		CreditPriceCents: cfg.CreditPriceCents,
	}
	wg := v1.Group("/wallets", middleware.RequireAuth())
	wg.Get("/balance", middleware.AuthorizePermission(constants.UseWallet), wh.Balance)
	wg.Get("/transactions", middleware.AuthorizePermission(constants.UseWallet), wh.Transactions)
	wg.Post("/top-up", middleware.AuthorizePermission(constants.UseWallet), wh.TopUp)
	wg.Post("/adjust", middleware.AuthorizePermission(constants.AdjustWallets), wh.Adjust)
	wg.Get("/:agentId/reconcile", middleware.AuthorizePermission(constants.AdjustWallets), wh.Reconcile)

	// Agents
	ah := &agenthandler.Handlers{Service: agents}
	v1.Post("/agents", ah.Onboard)
	ag := v1.Group("/agents", middleware.RequireAuth(), middleware.AuthorizePermission(constants.VerifyAgents))
	ag.Patch("/:id/verification", ah.SetVerification)
	ag.Post("/:id/activate", ah.Activate)

	// Referrals
	rh := &refhandler.Handlers{Service: referrals}
	v1.Get("/referrals/stats", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewReferrals), rh.Stats)

	// Reports
	reph := &reporthandler.Handlers{Service: reports}
	rg := v1.Group("/reports", middleware.RequireAuth())
	rg.Post("/", middleware.AuthorizePermission(constants.ReportLeads), reph.File)
	rg.Get("/", middleware.AuthorizePermission(constants.ResolveReports), reph.List)
	rg.Post("/:id/resolve", middleware.AuthorizePermission(constants.ResolveReports), reph.Resolve)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
