package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/swaggo/swag"

	"optiplus/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// deps are pinged by /health.
func RegisterRoutes(app *fiber.App, svc service.DatasetService, deps ...Pinger) {
	app.Get("/health", HealthCheck(deps...))
	app.Get("/healthz", LivenessProbe())

	app.Get("/datasets", ListDatasets(svc))
	app.Post("/datasets", UploadDataset(svc))
	app.Get("/datasets/:id", GetDataset(svc))
	app.Delete("/datasets/:id", DeleteDataset(svc))
	app.Get("/datasets/:id/export", ExportDataset(svc))
}

// RegisterDocs serves Swagger UI for the registered swag document, with host and scheme
// taken from the request so the "try it out" calls reach this server.
func RegisterDocs(app *fiber.App, info *swag.Spec) {
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		info.Host = c.Get(fiber.HeaderHost)
		info.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})
}
