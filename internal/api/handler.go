package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/alert"
	"github.com/smukkama/weather-index-server/internal/index"
	"github.com/smukkama/weather-index-server/internal/service"
)

type Handler struct {
	service *service.Service
	configs *index.ConfigStore
	alerts  alert.Store
	logger  *zap.Logger
}

func NewHandler(svc *service.Service, configs *index.ConfigStore, alerts alert.Store, logger *zap.Logger) *Handler {
	return &Handler{
		service: svc,
		configs: configs,
		alerts:  alerts,
		logger:  logger,
	}
}

// GetWeatherIndex handles GET /api/v1/weather-index
func (h *Handler) GetWeatherIndex(c *fiber.Ctx) error {
	var regions []string
	if param := c.Query("regions"); param != "" {
		for _, r := range strings.Split(param, ",") {
			if r = strings.TrimSpace(r); r != "" {
				regions = append(regions, r)
			}
		}
	}

	results, err := h.service.CalculateIndex(c.Context(), regions)
	if err != nil {
		h.logger.Error("Failed to calculate weather index", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to calculate weather index",
		})
	}

	return c.JSON(results)
}

// GetGlobalIndex handles GET /api/v1/weather-index/global
func (h *Handler) GetGlobalIndex(c *fiber.Ctx) error {
	results, err := h.service.CalculateIndex(c.Context(), nil)
	if err != nil {
		h.logger.Error("Failed to calculate global index", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to calculate global index",
		})
	}

	return c.JSON(h.service.Global(results))
}

// GetIndexHistory handles GET /api/v1/weather-index/history
func (h *Handler) GetIndexHistory(c *fiber.Ctx) error {
	region := c.Query("region")
	if region == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Region parameter is required",
		})
	}

	hoursStr := c.Query("hours", "24")
	hours, err := strconv.Atoi(hoursStr)
	if err != nil || hours < 1 || hours > 24*30 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Hours parameter must be a positive integer",
		})
	}

	history, err := h.service.History(c.Context(), region, hours)
	if err != nil {
		h.logger.Error("Failed to load index history",
			zap.String("region", region),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load index history",
		})
	}

	return c.JSON(history)
}

// GetConfig handles GET /api/v1/weather-index/config
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	return c.JSON(h.configs.Get())
}

// UpdateConfig handles PUT /api/v1/weather-index/config
func (h *Handler) UpdateConfig(c *fiber.Ctx) error {
	var update index.ConfigUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid config payload",
		})
	}

	merged, err := h.configs.Update(c.Context(), update)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(merged)
}

// GetAlerts handles GET /api/v1/alerts
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	status := c.Query("status")
	switch status {
	case "", alert.StatusActive, alert.StatusAcknowledged, alert.StatusResolved:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown status filter",
		})
	}

	alerts, err := h.alerts.List(c.Context(), alert.TypeWeatherIndex, status)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list alerts",
		})
	}

	return c.JSON(fiber.Map{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// AcknowledgeAlert handles POST /api/v1/alerts/:id/acknowledge
func (h *Handler) AcknowledgeAlert(c *fiber.Ctx) error {
	id := c.Params("id")

	acked, err := h.alerts.Acknowledge(c.Context(), id, time.Now().UTC())
	if err != nil {
		h.logger.Error("Failed to acknowledge alert",
			zap.String("alert_id", id),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to acknowledge alert",
		})
	}
	if acked == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active alert with that id",
		})
	}

	return c.JSON(acked)
}

// GetHealth handles GET /health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
