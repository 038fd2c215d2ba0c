package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
	"github.com/cinevault/cinevault-api/pkg/response"
)

// SubscriptionHandler handles the premium subscription endpoints.
type SubscriptionHandler struct {
	service *service.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc}
}

// Status godoc
// @Summary Current subscription
// @Description Return the caller's subscription, downgrading lapsed premium plans
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /subscriptions/status [get]
func (h *SubscriptionHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// Checkout godoc
// @Summary Start a premium checkout
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CheckoutRequest true "Plan selection"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	checkout, err := h.service.StartCheckout(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, checkout, nil)
}

// Confirm godoc
// @Summary Confirm a paid checkout
// @Description Verify the session with the billing provider and apply the upgrade
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param session_id query string true "Checkout session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /subscriptions/success [get]
func (h *SubscriptionHandler) Confirm(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.ConfirmCheckout(c.Request.Context(), claims.UserID, c.Query("session_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// AdminUpdate godoc
// @Summary Override a user's subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body models.AdminSubscriptionUpdate true "Subscription fields"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /users/{id}/subscription [put]
func (h *SubscriptionHandler) AdminUpdate(c *gin.Context) {
	var req models.AdminSubscriptionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	view, err := h.service.AdminUpdate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}
