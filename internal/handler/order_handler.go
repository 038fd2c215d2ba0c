package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
	"github.com/cinevault/cinevault-api/pkg/response"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	service  *service.OrderService
	pageSize int
	maxPage  int
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(svc *service.OrderService, defaultPageSize, maxPageSize int) *OrderHandler {
	return &OrderHandler{service: svc, pageSize: defaultPageSize, maxPage: maxPageSize}
}

// Create godoc
// @Summary Place an order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateOrderRequest true "Order payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	order, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, order)
}

// List godoc
// @Summary List the caller's orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c, h.pageSize, h.maxPage)

	orders, pagination, err := h.service.ListByUser(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, orders, pagination)
}

// UpdateStatus godoc
// @Summary Change an order's status
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, order, nil)
}
