// Package main provides the automation management API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/eventbus"
	"github.com/agencykit/automation/pkg/persistence"
	"github.com/agencykit/automation/pkg/services"
	"github.com/agencykit/automation/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence, eventBus eventbus.EventBus) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
	}
}

func (a *API) App() *fiber.App {
	automationService := services.NewAutomationService(a.persistence, catalog.Builtin(), a.eventBus, nil)

	handlers := web.NewAPIHandlers(automationService)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automation API")
	})

	app.Get("/conditions", handlers.GetConditions)

	g := app.Group("/automations")
	g.Get("/", handlers.GetAutomations)
	g.Post("/", handlers.CreateAutomation)
	g.Get("/:id", handlers.GetAutomation)
	g.Patch("/:id", handlers.UpdateAutomation)
	g.Delete("/:id", handlers.DeleteAutomation)
	g.Post("/:id/activate", handlers.ActivateAutomation)
	g.Post("/:id/pause", handlers.PauseAutomation)
	g.Post("/:id/resume", handlers.ResumeAutomation)
	g.Get("/:id/match", handlers.PreviewMatch)
	g.Get("/:id/match/count", handlers.GetMatchCount)
	g.Get("/:id/pacing", handlers.PreviewPacing)
	g.Get("/:id/enrollments", handlers.GetEnrollments)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
