package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
	"github.com/cinevault/cinevault-api/pkg/response"
)

// MovieHandler handles catalog endpoints.
type MovieHandler struct {
	service  *service.MovieService
	pageSize int
	maxPage  int
}

// NewMovieHandler creates a new movie handler.
func NewMovieHandler(svc *service.MovieService, defaultPageSize, maxPageSize int) *MovieHandler {
	return &MovieHandler{service: svc, pageSize: defaultPageSize, maxPage: maxPageSize}
}

// List godoc
// @Summary List movies
// @Description List catalog entries with filters and pagination
// @Tags Movies
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Param title query string false "Title search"
// @Param genre query string false "Genre filter"
// @Param release_year query int false "Release year filter"
// @Param min_rating query number false "Minimum rating"
// @Param premium query bool false "Premium filter"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /movies [get]
func (h *MovieHandler) List(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	movies, pagination, err := h.service.List(c.Request.Context(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, movies, pagination)
}

// Show routes the ambiguous path segment under /movies. A UUID loads a
// single movie, anything else is treated as a genre listing.
func (h *MovieHandler) Show(c *gin.Context) {
	if _, err := uuid.Parse(c.Param("id")); err == nil {
		h.Get(c)
		return
	}
	h.ListByGenre(c)
}

// ListByGenre godoc
// @Summary List movies by genre
// @Tags Movies
// @Produce json
// @Param genre path string true "Genre"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /movies/{genre} [get]
func (h *MovieHandler) ListByGenre(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	genre := models.Genre(strings.ToLower(c.Param("id")))
	movies, pagination, err := h.service.ListByGenre(c.Request.Context(), genre, *filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, movies, pagination)
}

// Get godoc
// @Summary Get movie
// @Tags Movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /movies/{id} [get]
func (h *MovieHandler) Get(c *gin.Context) {
	movie, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, movie, nil)
}

type movieCreatePayload struct {
	models.CreateMovieRequest
	PosterURL string `json:"poster_url" form:"poster_url"`
	BannerURL string `json:"banner_url" form:"banner_url"`
}

// Create godoc
// @Summary Create movie
// @Description Add a catalog entry. Images come as multipart files or allow-listed URLs.
// @Tags Movies
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateMovieRequest true "Movie payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /movies [post]
func (h *MovieHandler) Create(c *gin.Context) {
	var payload movieCreatePayload
	if err := bindJSONOrForm(c, &payload); err != nil {
		response.Error(c, err)
		return
	}

	poster, err := imageSource(c, "poster", payload.PosterURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	banner, err := imageSource(c, "banner", payload.BannerURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload.Poster = poster
	payload.Banner = banner

	movie, err := h.service.Create(c.Request.Context(), payload.CreateMovieRequest)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, movie)
}

type movieUpdatePayload struct {
	models.UpdateMovieRequest
	PosterURL string `json:"poster_url" form:"poster_url"`
	BannerURL string `json:"banner_url" form:"banner_url"`
}

// Update godoc
// @Summary Update movie
// @Description Partially update a catalog entry. Absent fields are kept.
// @Tags Movies
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Param payload body models.UpdateMovieRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /movies/{id} [patch]
func (h *MovieHandler) Update(c *gin.Context) {
	var payload movieUpdatePayload
	if err := bindJSONOrForm(c, &payload); err != nil {
		response.Error(c, err)
		return
	}

	poster, err := imageSource(c, "poster", payload.PosterURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	banner, err := imageSource(c, "banner", payload.BannerURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload.Poster = poster
	payload.Banner = banner

	movie, err := h.service.Update(c.Request.Context(), c.Param("id"), payload.UpdateMovieRequest)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, movie, nil)
}

// Delete godoc
// @Summary Delete movie
// @Tags Movies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /movies/{id} [delete]
func (h *MovieHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func (h *MovieHandler) parseFilter(c *gin.Context) (*models.MovieFilter, error) {
	var filter models.MovieFilter
	filter.Page, filter.PageSize = pageParams(c, h.pageSize, h.maxPage)
	filter.Title = c.Query("title")

	if genre := c.Query("genre"); genre != "" {
		g := models.Genre(genre)
		if !models.ValidGenre(g) {
			return nil, appErrors.Validation([]string{"genre is not a known value"})
		}
		filter.Genre = &g
	}
	if year := c.Query("release_year"); year != "" {
		val, err := strconv.Atoi(year)
		if err != nil {
			return nil, appErrors.Validation([]string{"release_year must be an integer"})
		}
		filter.ReleaseYear = &val
	}
	if rating := c.Query("min_rating"); rating != "" {
		val, err := strconv.ParseFloat(rating, 64)
		if err != nil {
			return nil, appErrors.Validation([]string{"min_rating must be a number"})
		}
		filter.MinRating = &val
	}
	if premium := c.Query("premium"); premium != "" {
		val, err := strictBool(premium)
		if err != nil {
			return nil, err
		}
		filter.Premium = val
	}

	return &filter, nil
}

// bindJSONOrForm accepts both JSON and multipart payloads for the same route.
func bindJSONOrForm(c *gin.Context, dest interface{}) error {
	contentType := c.ContentType()
	var err error
	if strings.HasPrefix(contentType, "multipart/form-data") || contentType == "application/x-www-form-urlencoded" {
		err = c.ShouldBind(dest)
	} else {
		err = c.ShouldBindJSON(dest)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}

// imageSource resolves an uploaded file or remote URL for the named field.
// The file wins when both are supplied.
func imageSource(c *gin.Context, field, rawURL string) (*models.ImageSource, error) {
	file, err := c.FormFile(field)
	if err == nil && file != nil {
		upload, err := readUpload(file)
		if err != nil {
			return nil, err
		}
		return &models.ImageSource{Upload: upload}, nil
	}
	if rawURL != "" {
		return &models.ImageSource{URL: rawURL}, nil
	}
	return nil, nil
}

func readUpload(header *multipart.FileHeader) (*models.ImageUpload, error) {
	f, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &models.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
