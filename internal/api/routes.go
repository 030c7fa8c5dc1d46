package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smukkama/weather-index-server/internal/observability"
)

func SetupRoutes(app *fiber.App, handler *Handler, metrics *observability.Metrics) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	app.Get("/health", handler.GetHealth)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(
			metrics.Registry(),
			promhttp.HandlerOpts{},
		)))
	}

	api := app.Group("/api/v1")

	weatherIndex := api.Group("/weather-index")
	weatherIndex.Get("/", handler.GetWeatherIndex)
	weatherIndex.Get("/global", handler.GetGlobalIndex)
	weatherIndex.Get("/history", handler.GetIndexHistory)
	weatherIndex.Get("/config", handler.GetConfig)
	weatherIndex.Put("/config", handler.UpdateConfig)

	alerts := api.Group("/alerts")
	alerts.Get("/", handler.GetAlerts)
	alerts.Post("/:id/acknowledge", handler.AcknowledgeAlert)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
			"path":  c.Path(),
		})
	})
}
