package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/handlers"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/middleware"
	"github.com/tonetrace/tonetrace/internal/telemetry"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, cfg config.Config, tp *telemetry.Provider) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
		ExposeHeaders: handlers.ProfileRevisionHeader + ",X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Unauthenticated endpoints
	app.Get("/health", h.Health)
	if cfg.Metrics.Enabled && tp != nil {
		app.Get(cfg.Metrics.Path, tp.FiberHandler())
	}

	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled))

	// Analysis
	v1.Post("/analyze", h.Analyze)
	v1.Post("/extract", h.Extract)

	// Profiles
	v1.Get("/students/:student_id/profile", h.GetProfile)
	v1.Post("/students/:student_id/compare", h.Compare)
	v1.Delete("/students/:student_id", h.DeleteStudent)

	// Submission archive
	v1.Get("/students/:student_id/submissions", h.ListSubmissions)
	v1.Get("/students/:student_id/history/:metric", h.History)
	v1.Get("/submissions/:submission_id", h.GetSubmission)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, h *handlers.Handler, cfg config.Config, tp *telemetry.Provider) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tonetrace",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, h, cfg, tp)

	return app
}
