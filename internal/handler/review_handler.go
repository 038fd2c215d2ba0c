package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
	"github.com/cinevault/cinevault-api/pkg/response"
)

// ReviewHandler handles review endpoints.
type ReviewHandler struct {
	service  *service.ReviewService
	pageSize int
	maxPage  int
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(svc *service.ReviewService, defaultPageSize, maxPageSize int) *ReviewHandler {
	return &ReviewHandler{service: svc, pageSize: defaultPageSize, maxPage: maxPageSize}
}

// List godoc
// @Summary List reviews for a movie
// @Tags Reviews
// @Produce json
// @Param id path string true "Movie ID"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /movies/{id}/reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c, h.pageSize, h.maxPage)

	reviews, pagination, err := h.service.ListByMovie(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Create godoc
// @Summary Review a movie
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Param payload body models.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /movies/{id}/reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	review, err := h.service.Create(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, review)
}

// Delete godoc
// @Summary Delete a review
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
