package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"pdf2image/internal/config"
	"pdf2image/internal/http/handlers"
	"pdf2image/internal/http/middleware"
	"pdf2image/internal/infra/archive"
	"pdf2image/internal/infra/logging"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Config  config.Config
	Redis   *redis.Client
	Archive *archive.Store
}

// New creates and configures the Fiber app.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		BodyLimit:             d.Config.Limits.MaxPDFBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, d.Config)
	registerRoutes(app, d)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// registerRoutes mounts all route handlers to the app.
func registerRoutes(app *fiber.App, d Deps) {
	// One shared service instance so all routes share the same render pool.
	svc := handlers.NewRenderService(d.Config, d.Redis, d.Archive)

	app.Post("/process", svc.HandleProcess)
	app.Post("/process/text", svc.HandleTextLayer)
	app.Get("/render/stats", svc.HandleRenderStats)

	app.Get("/monitor", monitor.New())
}
