package handler

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"movie-mood-service/internal/service"
)

// StatusHandler serves health and storage diagnostics.
type StatusHandler struct {
	svc *service.MovieService
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(svc *service.MovieService) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *StatusHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "movie-mood-service",
	})
}

// Status reports storage availability and the movie count.
// @Summary Storage status
// @Tags diagnostics
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Failure 500 {object} map[string]string
// @Router /api/status [get]
func (h *StatusHandler) Status(c fiber.Ctx) error {
	st, err := h.svc.Status(c.Context())
	if err != nil {
		slog.Error("failed to check status", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":    "error",
			"message":   err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
	c.Set(headerStorageMode, st.Storage)
	return c.JSON(st)
}

// DebugStorage writes a probe object to the durable store.
// @Summary Durable store probe
// @Tags diagnostics
// @Produce json
// @Success 200 {object} service.DebugReport
// @Router /api/debug/storage [get]
func (h *StatusHandler) DebugStorage(c fiber.Ctx) error {
	report := h.svc.DebugStorage(c.Context())
	status := "ok"
	if !report.Success {
		status = "error"
	}
	return c.JSON(fiber.Map{
		"status":    status,
		"probe":     report.ProbeResult,
		"storage":   report.Status,
		"lists":     report.Reports,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
