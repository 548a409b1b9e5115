package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"standup/internal/database"
	"standup/internal/models"
	"standup/internal/services"
)

const helpText = "**Team status bot**\n\n" +
	"`/new [name]` - start a new meeting\n" +
	"`/update <id> <progress> | <blockers> | <goals>` - submit your update\n" +
	"`/close <id>` - close a meeting and publish the report\n" +
	"`/help` - show this message\n\n" +
	"Updates are private until the meeting is closed. Submitting twice replaces your earlier update."

// TelegramHandler handles incoming Telegram webhook requests and bot commands
type TelegramHandler struct {
	telegramService *services.TelegramService
	meetingService  *services.MeetingService
}

// NewTelegramHandler creates a new Telegram handler
func NewTelegramHandler(telegramService *services.TelegramService, meetingService *services.MeetingService) *TelegramHandler {
	return &TelegramHandler{
		telegramService: telegramService,
		meetingService:  meetingService,
	}
}

// Webhook handles incoming Telegram webhook requests
// POST /api/telegram/webhook/:secret
func (h *TelegramHandler) Webhook(c *fiber.Ctx) error {
	secret := c.Params("secret")
	if secret == "" || secret != h.telegramService.WebhookSecret() {
		log.Printf("⚠️ [TELEGRAM-WEBHOOK] Invalid webhook secret")
		return c.Status(404).JSON(fiber.Map{"error": "Invalid webhook"})
	}

	var update models.TelegramUpdate
	if err := c.BodyParser(&update); err != nil {
		log.Printf("⚠️ [TELEGRAM-WEBHOOK] Failed to parse update: %v", err)
		return c.SendStatus(200)
	}

	// Only text messages carry commands
	if update.Message == nil || update.Message.Text == "" {
		return c.SendStatus(200)
	}

	// Process asynchronously; return 200 immediately to acknowledge receipt
	go h.HandleMessage(update.Message)

	return c.SendStatus(200)
}

// HandleMessage processes a single incoming message. It also serves as the
// callback for the long polling mode.
func (h *TelegramHandler) HandleMessage(msg *models.TelegramMessage) {
	text := strings.TrimSpace(msg.Text)
	if msg.Chat == nil || !strings.HasPrefix(text, "/") {
		return
	}

	// Channel posts carry no sender; without an author identity no command
	// can be attributed, so drop the message.
	user := msg.From.Identity()
	if user == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command, args := splitCommand(text)

	var reply string
	switch command {
	case "/new":
		reply = h.handleNew(user, args)
	case "/update":
		reply = h.handleUpdate(user, args)
	case "/close":
		reply = h.handleClose(user, args)
	case "/help", "/start":
		reply = helpText
	default:
		reply = fmt.Sprintf("Unknown command `%s`. Try `/help`.", command)
	}

	if err := h.telegramService.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		log.Printf("❌ [TELEGRAM] Failed to send reply: %v", err)
	}
}

// splitCommand separates the command token from its arguments. Telegram
// appends @botname to commands in group chats; strip it.
func splitCommand(text string) (command, args string) {
	parts := strings.SplitN(text, " ", 2)
	command = parts[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args
}

func (h *TelegramHandler) handleNew(user, args string) string {
	meeting, err := h.meetingService.Create(user, args, "")
	if err != nil {
		return friendlyError(err)
	}

	label := fmt.Sprintf("`%s`", meeting.ID)
	if meeting.Name != "" {
		label = fmt.Sprintf("%s (`%s`)", meeting.Name, meeting.ID)
	}
	return fmt.Sprintf("Meeting %s is open. Submit your update with:\n`/update %s <progress> | <blockers> | <goals>`", label, meeting.ID)
}

func (h *TelegramHandler) handleUpdate(user, args string) string {
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 {
		return "Usage: `/update <id> <progress> | <blockers> | <goals>`"
	}
	meetingID := parts[0]

	sections := strings.Split(parts[1], "|")
	if len(sections) != 3 {
		return "Your update needs three sections separated by `|`: progress, blockers, goals."
	}

	// Tell the author whether this replaced an earlier submission
	replaced := false
	if meeting, err := h.meetingService.Get(meetingID); err == nil {
		_, replaced = meeting.UpdateFor(user)
	}

	_, err := h.meetingService.SubmitUpdate(meetingID, user, sections[0], sections[1], sections[2])
	if err != nil {
		return friendlyError(err)
	}

	if replaced {
		return fmt.Sprintf("Got it, %s. Your earlier update for `%s` has been replaced.", user, meetingID)
	}
	return fmt.Sprintf("Got it, %s. Your update for `%s` is recorded. Submitting again replaces it.", user, meetingID)
}

func (h *TelegramHandler) handleClose(user, args string) string {
	meetingID := strings.TrimSpace(args)
	if meetingID == "" {
		return "Usage: `/close <id>`"
	}

	meeting, err := h.meetingService.Close(meetingID, user)
	if err != nil {
		return friendlyError(err)
	}

	return fmt.Sprintf("Meeting `%s` is closed with %d update(s). The report is on its way to the archive.", meeting.ID, len(meeting.Updates))
}

// friendlyError turns domain errors into chat replies
func friendlyError(err error) string {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Sprintf("That didn't work: %s.", validationErr.Error())
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		return "No meeting with that ID. Check the ID and try again."
	case errors.Is(err, models.ErrMeetingClosed):
		return "That meeting is already closed; updates are no longer accepted."
	case errors.Is(err, models.ErrAlreadyClosed):
		return "That meeting is already closed."
	}

	log.Printf("❌ [TELEGRAM] Unexpected error: %v", err)
	return "Something went wrong. Please try again."
}
