package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/chapterwise/chapterwise-backend/internal/dto"
	"github.com/chapterwise/chapterwise-backend/internal/middleware"
	"github.com/chapterwise/chapterwise-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type NotesHandler struct {
	usageService *services.UsageService
	notesService *services.NotesService
}

func NewNotesHandler(usageService *services.UsageService, notesService *services.NotesService) *NotesHandler {
	return &NotesHandler{usageService: usageService, notesService: notesService}
}

// Generate charges the request's character cost against the user's quota
// and, only if allowed, makes the generation call.
func (h *NotesHandler) Generate(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.GenerateNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Input cannot be empty",
		})
	}

	cost := int64(utf8.RuneCountInString(req.Text))
	if err := h.usageService.CheckAndConsume(userID, cost); err != nil {
		var quotaErr *services.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.QuotaErrorResponse{
				Error:   true,
				Message: capitalize(string(quotaErr.Scope)) + " limit reached",
				Scope:   string(quotaErr.Scope),
			})
		}
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		}
		slog.Error("quota check failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	notes, err := h.notesService.Generate(c.UserContext(), req.Text)
	if err != nil {
		slog.Error("notes generation failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to generate notes",
		})
	}

	return c.JSON(dto.GenerateNotesResponse{Output: notes})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
