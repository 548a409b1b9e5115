package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"standup/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	archiveService *services.ArchiveService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(archiveService *services.ArchiveService) *HealthHandler {
	return &HealthHandler{archiveService: archiveService}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "healthy",
		"archive":         h.archiveService.IsAvailable(),
		"archive_pending": h.archiveService.PendingCount(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}
