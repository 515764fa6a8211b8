package handlers

import (
	"log/slog"
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/billing"
	"github.com/chapterwise/chapterwise-backend/internal/config"
	"github.com/chapterwise/chapterwise-backend/internal/dto"
	"github.com/chapterwise/chapterwise-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const signatureHeader = "Billing-Signature"

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	cfg                 *config.Config
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{subscriptionService: subscriptionService, cfg: cfg}
}

// HandleBilling verifies and applies a billing processor event. Handled,
// duplicate and unknown-subject events are all acknowledged with 200 so the
// processor stops redelivering; only authentication failures get a 400.
func (h *WebhookHandler) HandleBilling(c *fiber.Ctx) error {
	payload := c.Body()

	if err := billing.VerifySignature(payload, c.Get(signatureHeader), h.cfg.BillingWebhookSecret, time.Now()); err != nil {
		slog.Warn("webhook signature verification failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook signature",
		})
	}

	evt, err := billing.ParseEvent(payload)
	if err != nil {
		slog.Warn("webhook payload parse failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}

	if err := h.subscriptionService.ApplyEvent(c.UserContext(), evt); err != nil {
		slog.Error("webhook processing failed", "event_id", evt.EventID, "event_type", evt.Type, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "event_id", evt.EventID, "event_type", evt.Type)
	return c.JSON(fiber.Map{"received": true})
}
