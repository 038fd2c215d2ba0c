package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
	"github.com/cinevault/cinevault-api/pkg/response"
)

// ExportHandler serves rendered admin reports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Movies godoc
// @Summary Export the movie catalog
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 422 {object} response.Envelope
// @Router /exports/movies [get]
func (h *ExportHandler) Movies(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	var filter models.MovieFilter
	if genre := c.Query("genre"); genre != "" {
		g := models.Genre(genre)
		filter.Genre = &g
	}

	result, err := h.service.Movies(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, result)
}

// Users godoc
// @Summary Export the user base
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 422 {object} response.Envelope
// @Router /exports/users [get]
func (h *ExportHandler) Users(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	var filter models.UserFilter
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}

	result, err := h.service.Users(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, result)
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
