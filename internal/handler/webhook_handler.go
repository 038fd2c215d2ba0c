package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
	"github.com/cinevault/cinevault-api/pkg/response"
)

const maxWebhookBodyBytes = int64(65536)

// WebhookHandler receives billing provider events.
type WebhookHandler struct {
	service       *service.SubscriptionService
	webhookSecret string
	logger        *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc *service.SubscriptionService, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{service: svc, webhookSecret: webhookSecret, logger: logger}
}

// Stripe godoc
// @Summary Stripe webhook
// @Description Verify the event signature and apply subscription changes
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /stripe/webhook [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn("stripe webhook body read failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.logger.Warn("stripe session unmarshal failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}

		billing := &service.BillingSession{
			ID:   sess.ID,
			Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
			Plan: models.CheckoutPlan(sess.Metadata["plan_type"]),
		}
		if sess.Customer != nil {
			billing.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			billing.SubscriptionID = sess.Subscription.ID
		}

		if err := h.service.HandleCheckoutCompleted(c.Request.Context(), billing); err != nil {
			response.Error(c, err)
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.logger.Warn("stripe subscription unmarshal failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		if sub.Customer != nil {
			if err := h.service.HandleSubscriptionDeleted(c.Request.Context(), sub.Customer.ID); err != nil {
				response.Error(c, err)
				return
			}
		}

	default:
		h.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
