package bootstrap

import (
	"leadslot-backend/internal/config"
	"leadslot-backend/internal/infrastructure/database"
	"leadslot-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for Vercel serverless (api handler imports this package, not internal).
// Tables are migrated on cold start.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, db, _, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return app, nil
}
