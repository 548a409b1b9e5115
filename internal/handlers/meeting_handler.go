package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"standup/internal/database"
	"standup/internal/models"
	"standup/internal/services"
)

// MeetingHandler handles meeting-related HTTP requests
type MeetingHandler struct {
	meetingService *services.MeetingService
	reportService  *services.ReportService
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingService *services.MeetingService, reportService *services.ReportService) *MeetingHandler {
	return &MeetingHandler{
		meetingService: meetingService,
		reportService:  reportService,
	}
}

// Create starts a new meeting
// POST /api/meetings
func (h *MeetingHandler) Create(c *fiber.Ctx) error {
	var req models.CreateMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request body",
		})
	}

	if req.CreatedBy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "created_by is required",
		})
	}

	meeting, err := h.meetingService.Create(req.CreatedBy, req.Name, req.Link)
	if err != nil {
		return writeMeetingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(meeting.ToResponse())
}

// List returns the IDs of all stored meetings
// GET /api/meetings
func (h *MeetingHandler) List(c *fiber.Ctx) error {
	ids, err := h.meetingService.List()
	if err != nil {
		log.Printf("❌ [MEETING] Failed to list meetings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Failed to list meetings",
		})
	}

	return c.JSON(models.ListMeetingsResponse{
		Meetings: ids,
		Total:    len(ids),
	})
}

// Get returns a single meeting with its updates
// GET /api/meetings/:id
func (h *MeetingHandler) Get(c *fiber.Ctx) error {
	meeting, err := h.meetingService.Get(c.Params("id"))
	if err != nil {
		return writeMeetingError(c, err)
	}
	return c.JSON(meeting.ToResponse())
}

// SubmitUpdate records or replaces a participant's update
// POST /api/meetings/:id/updates
func (h *MeetingHandler) SubmitUpdate(c *fiber.Ctx) error {
	var req models.SubmitUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request body",
		})
	}

	if req.User == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "user is required",
		})
	}

	update, err := h.meetingService.SubmitUpdate(c.Params("id"), req.User, req.Progress, req.Blockers, req.Goals)
	if err != nil {
		return writeMeetingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(update)
}

// Close closes a meeting and triggers report publication
// POST /api/meetings/:id/close
func (h *MeetingHandler) Close(c *fiber.Ctx) error {
	var req models.CloseMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		// body is optional for close
		req = models.CloseMeetingRequest{}
	}

	meeting, err := h.meetingService.Close(c.Params("id"), req.ClosedBy)
	if err != nil {
		return writeMeetingError(c, err)
	}

	return c.JSON(meeting.ToResponse())
}

// Report renders the meeting report as markdown
// GET /api/meetings/:id/report
func (h *MeetingHandler) Report(c *fiber.Ctx) error {
	meeting, err := h.meetingService.Get(c.Params("id"))
	if err != nil {
		return writeMeetingError(c, err)
	}

	report, err := h.reportService.RenderMarkdown(meeting)
	if err != nil {
		log.Printf("❌ [REPORT] Failed to render report for %s: %v", meeting.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Failed to render report",
		})
	}

	c.Set("Content-Type", "text/markdown; charset=utf-8")
	return c.SendString(report)
}

// writeMeetingError maps domain errors onto HTTP status codes
func writeMeetingError(c *fiber.Ctx, err error) error {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: validationErr.Error(),
			Field: validationErr.Field,
			Rule:  validationErr.Rule,
		})
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Meeting not found",
		})
	case errors.Is(err, models.ErrMeetingClosed):
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error: "Meeting is closed",
		})
	case errors.Is(err, models.ErrAlreadyClosed):
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error: "Meeting is already closed",
		})
	}

	log.Printf("❌ [MEETING] Unexpected error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: "Internal server error",
	})
}
