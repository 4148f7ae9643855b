package bootstrap

import (
	"context"

	"shares-backend/internal/config"
	"shares-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for Vercel serverless (api handler imports this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	deps, err := router.Connect(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return router.CreateApp(cfg, deps, router.NewServices(cfg, deps)), nil
}
