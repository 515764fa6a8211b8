package handlers

import (
	"errors"
	"log/slog"

	"github.com/chapterwise/chapterwise-backend/internal/dto"
	"github.com/chapterwise/chapterwise-backend/internal/middleware"
	"github.com/chapterwise/chapterwise-backend/internal/models"
	"github.com/chapterwise/chapterwise-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewAccountHandler(subscriptionService *services.SubscriptionService) *AccountHandler {
	return &AccountHandler{subscriptionService: subscriptionService}
}

// Me returns the sanitized subscription view, after the lazy-expiry check.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	user, err := h.subscriptionService.Status(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		}
		slog.Error("account status failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.AccountResponse{
		ID:                  user.ID,
		Name:                user.Name,
		Email:               user.Email,
		Plan:                string(user.Plan),
		SubscribedAt:        user.SubscribedAt,
		SubscribedUntil:     user.SubscribedUntil,
		PendingCancellation: user.Plan == models.PlanPendingCancellation,
		PlanName:            user.PlanName,
		PlanPrice:           user.PlanPrice,
		BillingInterval:     user.BillingInterval,
		DailyCharacters:     user.DailyCharacters,
		MonthlyCharacters:   user.MonthlyCharacters,
	})
}

// Cancel stops renewal at period end.
func (h *AccountHandler) Cancel(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	if err := h.subscriptionService.Cancel(c.UserContext(), userID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		case errors.Is(err, services.ErrNoSubscription):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "No active subscription found",
			})
		default:
			slog.Error("subscription cancel failed", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to cancel subscription",
			})
		}
	}

	return c.JSON(fiber.Map{"message": "Subscription will not renew after current period"})
}

// Reactivate undoes a pending cancellation.
func (h *AccountHandler) Reactivate(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	if err := h.subscriptionService.Reactivate(c.UserContext(), userID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		case errors.Is(err, services.ErrNothingToReactivate):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "No cancelled subscription to reactivate",
			})
		default:
			slog.Error("subscription reactivate failed", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to reactivate subscription",
			})
		}
	}

	return c.JSON(fiber.Map{"message": "Subscription reactivated"})
}

// GrantSubscription is the admin backdoor for support-granted periods.
func (h *AccountHandler) GrantSubscription(c *fiber.Ctx) error {
	var req dto.GrantSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	days := req.Days
	if days <= 0 {
		days = 30
	}

	if err := h.subscriptionService.Grant(req.UserID, days, req.PlanName); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		}
		slog.Error("subscription grant failed", "user_id", req.UserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to grant subscription",
		})
	}

	return c.JSON(fiber.Map{"message": "Subscription granted"})
}
