package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type movieRepository interface {
	List(ctx context.Context, filter models.MovieFilter) ([]models.Movie, int, error)
	FindByID(ctx context.Context, id string) (*models.Movie, error)
	Create(ctx context.Context, movie *models.Movie) error
	Update(ctx context.Context, movie *models.Movie) error
	Delete(ctx context.Context, id string) error
}

type imageStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

type remoteImageFetcher interface {
	Allowed(rawURL string) bool
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// MovieConfig tunes catalog behaviour.
type MovieConfig struct {
	PublicBaseURL string
	MaxImageBytes int64
	AllowedMIMEs  []string
	CacheTTL      time.Duration
}

// MovieService implements catalog listing and administration.
type MovieService struct {
	repo          movieRepository
	store         imageStore
	fetcher       remoteImageFetcher
	cache         *CacheService
	notifications *NotificationService
	validator     *validator.Validate
	logger        *zap.Logger
	config        MovieConfig
}

// NewMovieService constructs the catalog service.
func NewMovieService(repo movieRepository, store imageStore, fetcher remoteImageFetcher, cache *CacheService, notifications *NotificationService, validate *validator.Validate, logger *zap.Logger, config MovieConfig) *MovieService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = 5 << 20
	}
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = []string{"image/png", "image/jpeg"}
	}
	return &MovieService{
		repo:          repo,
		store:         store,
		fetcher:       fetcher,
		cache:         cache,
		notifications: notifications,
		validator:     validate,
		logger:        logger,
		config:        config,
	}
}

type cachedMovieList struct {
	Items      []models.MovieSummary `json:"items"`
	Pagination models.Pagination     `json:"pagination"`
}

// List returns a filtered catalog page. Results are served from cache when
// possible; an empty page for a valid filter is a success, not an error.
func (s *MovieService) List(ctx context.Context, filter models.MovieFilter) ([]models.MovieSummary, *models.Pagination, error) {
	key := s.listCacheKey(filter)
	if s.cache.Enabled() {
		var cached cachedMovieList
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			pagination := cached.Pagination
			return cached.Items, &pagination, nil
		}
	}

	movies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list movies")
	}

	items := make([]models.MovieSummary, 0, len(movies))
	for i := range movies {
		items = append(items, movies[i].Summary(s.attachmentURL))
	}
	pagination := models.NewPagination(filter.Page, filter.PageSize, total)

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, cachedMovieList{Items: items, Pagination: *pagination}, s.config.CacheTTL)
	}

	return items, pagination, nil
}

// ListByGenre returns a catalog page restricted to one genre.
func (s *MovieService) ListByGenre(ctx context.Context, genre models.Genre, filter models.MovieFilter) ([]models.MovieSummary, *models.Pagination, error) {
	if !models.ValidGenre(genre) {
		return nil, nil, appErrors.Validation([]string{fmt.Sprintf("genre must be one of: %s", genreList())})
	}
	filter.Genre = &genre
	return s.List(ctx, filter)
}

// Get loads a single movie with full detail.
func (s *MovieService) Get(ctx context.Context, id string) (*models.MovieDetail, error) {
	movie, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := movie.Detail(s.attachmentURL)
	return &detail, nil
}

// Create validates and stores a new catalog entry. Premium titles trigger a
// push announcement to premium subscribers.
func (s *MovieService) Create(ctx context.Context, req models.CreateMovieRequest) (*models.MovieDetail, error) {
	problems := validateMovieFields(req.Title, req.Genre, req.ReleaseYear, req.Rating, req.Director, req.Duration, req.MainLead, req.StreamingPlatform, req.Description)
	if req.Poster == nil {
		problems = append(problems, "poster must be attached")
	}
	if req.Banner == nil {
		problems = append(problems, "banner must be attached")
	}
	if len(problems) > 0 {
		return nil, appErrors.Validation(problems)
	}

	now := time.Now().UTC()
	movie := &models.Movie{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Genre:             req.Genre,
		ReleaseYear:       req.ReleaseYear,
		Rating:            req.Rating,
		Director:          req.Director,
		Duration:          req.Duration,
		MainLead:          req.MainLead,
		StreamingPlatform: req.StreamingPlatform,
		Description:       req.Description,
		Premium:           req.Premium,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	posterPath, err := s.storeImage(ctx, "poster", req.Poster)
	if err != nil {
		return nil, err
	}
	movie.PosterPath = &posterPath

	bannerPath, err := s.storeImage(ctx, "banner", req.Banner)
	if err != nil {
		s.removeImage(movie.PosterPath)
		return nil, err
	}
	movie.BannerPath = &bannerPath

	if err := s.repo.Create(ctx, movie); err != nil {
		s.removeImage(movie.PosterPath)
		s.removeImage(movie.BannerPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create movie")
	}

	s.invalidateListCache(ctx)

	if movie.Premium {
		s.notifications.NotifyPremiumMovie(ctx, movie)
	}

	s.logger.Info("movie created", zap.String("movie_id", movie.ID), zap.Bool("premium", movie.Premium))
	detail := movie.Detail(s.attachmentURL)
	return &detail, nil
}

// Update applies a partial update. Nil fields keep their stored values, and
// attachments can be replaced or explicitly removed.
func (s *MovieService) Update(ctx context.Context, id string, req models.UpdateMovieRequest) (*models.MovieDetail, error) {
	movie, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	wasPremium := movie.Premium

	if req.Title != nil {
		movie.Title = *req.Title
	}
	if req.Genre != nil {
		movie.Genre = *req.Genre
	}
	if req.ReleaseYear != nil {
		movie.ReleaseYear = *req.ReleaseYear
	}
	if req.Rating != nil {
		movie.Rating = *req.Rating
	}
	if req.Director != nil {
		movie.Director = *req.Director
	}
	if req.Duration != nil {
		movie.Duration = *req.Duration
	}
	if req.MainLead != nil {
		movie.MainLead = *req.MainLead
	}
	if req.StreamingPlatform != nil {
		movie.StreamingPlatform = *req.StreamingPlatform
	}
	if req.Description != nil {
		movie.Description = *req.Description
	}
	if req.Premium != nil {
		movie.Premium = *req.Premium
	}

	if problems := validateMovieFields(movie.Title, movie.Genre, movie.ReleaseYear, movie.Rating, movie.Director, movie.Duration, movie.MainLead, movie.StreamingPlatform, movie.Description); len(problems) > 0 {
		return nil, appErrors.Validation(problems)
	}

	oldPoster, oldBanner := movie.PosterPath, movie.BannerPath
	if req.Poster != nil {
		path, err := s.storeImage(ctx, "poster", req.Poster)
		if err != nil {
			return nil, err
		}
		movie.PosterPath = &path
	} else if req.RemovePoster {
		movie.PosterPath = nil
	}
	if req.Banner != nil {
		path, err := s.storeImage(ctx, "banner", req.Banner)
		if err != nil {
			if req.Poster != nil {
				s.removeImage(movie.PosterPath)
			}
			return nil, err
		}
		movie.BannerPath = &path
	} else if req.RemoveBanner {
		movie.BannerPath = nil
	}

	movie.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, movie); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update movie")
	}

	if (req.Poster != nil || req.RemovePoster) && oldPoster != nil {
		s.removeImage(oldPoster)
	}
	if (req.Banner != nil || req.RemoveBanner) && oldBanner != nil {
		s.removeImage(oldBanner)
	}

	s.invalidateListCache(ctx)

	if !wasPremium && movie.Premium {
		s.notifications.NotifyPremiumMovie(ctx, movie)
	}

	detail := movie.Detail(s.attachmentURL)
	return &detail, nil
}

// Delete removes a catalog entry and its attachments.
func (s *MovieService) Delete(ctx context.Context, id string) error {
	movie, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete movie")
	}

	s.removeImage(movie.PosterPath)
	s.removeImage(movie.BannerPath)
	s.invalidateListCache(ctx)

	s.logger.Info("movie deleted", zap.String("movie_id", id))
	return nil
}

func (s *MovieService) find(ctx context.Context, id string) (*models.Movie, error) {
	movie, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "movie not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load movie")
	}
	return movie, nil
}

// storeImage resolves an upload or allow-listed remote URL into a stored file.
func (s *MovieService) storeImage(ctx context.Context, kind string, src *models.ImageSource) (string, error) {
	var (
		data        []byte
		contentType string
	)

	switch {
	case src.Upload != nil:
		data = src.Upload.Data
		contentType = src.Upload.ContentType
	case src.URL != "":
		if s.fetcher == nil || !s.fetcher.Allowed(src.URL) {
			return "", appErrors.Validation([]string{fmt.Sprintf("%s_url host is not allowed", kind)})
		}
		fetched, fetchedType, err := s.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, fmt.Sprintf("failed to fetch %s image", kind))
		}
		data = fetched
		contentType = fetchedType
	default:
		return "", appErrors.Validation([]string{fmt.Sprintf("%s image source is empty", kind)})
	}

	if int64(len(data)) > s.config.MaxImageBytes {
		return "", appErrors.Validation([]string{fmt.Sprintf("%s exceeds the maximum size of %d bytes", kind, s.config.MaxImageBytes)})
	}

	ext := extensionFor(contentType)
	if ext == "" || !s.mimeAllowed(contentType) {
		return "", appErrors.Validation([]string{fmt.Sprintf("%s must be a PNG or JPEG image", kind)})
	}

	filename := fmt.Sprintf("%s-%s%s", kind, uuid.NewString(), ext)
	if _, err := s.store.Save(filename, data); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to store %s image", kind))
	}
	return filename, nil
}

func (s *MovieService) removeImage(path *string) {
	if path == nil {
		return
	}
	if err := s.store.Delete(*path); err != nil {
		s.logger.Warn("failed to remove attachment", zap.String("path", *path), zap.Error(err))
	}
}

func (s *MovieService) mimeAllowed(contentType string) bool {
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, allowed := range s.config.AllowedMIMEs {
		if mime == allowed {
			return true
		}
	}
	return false
}

func (s *MovieService) attachmentURL(filename string) string {
	return fmt.Sprintf("%s/uploads/%s", strings.TrimRight(s.config.PublicBaseURL, "/"), filename)
}

func (s *MovieService) listCacheKey(filter models.MovieFilter) string {
	var b strings.Builder
	b.WriteString("movies:list")
	if filter.Title != "" {
		fmt.Fprintf(&b, ":title=%s", filter.Title)
	}
	if filter.Genre != nil {
		fmt.Fprintf(&b, ":genre=%s", *filter.Genre)
	}
	if filter.ReleaseYear != nil {
		fmt.Fprintf(&b, ":year=%d", *filter.ReleaseYear)
	}
	if filter.MinRating != nil {
		fmt.Fprintf(&b, ":rating=%.2f", *filter.MinRating)
	}
	if filter.Premium != nil {
		fmt.Fprintf(&b, ":premium=%t", *filter.Premium)
	}
	fmt.Fprintf(&b, ":page=%d:size=%d", filter.Page, filter.PageSize)
	return b.String()
}

func (s *MovieService) invalidateListCache(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "movies:list*")
}

// validateMovieFields checks the catalog bounds and collects every failure.
func validateMovieFields(title string, genre models.Genre, year int, rating float64, director string, duration int, mainLead string, platform models.StreamingPlatform, description string) []string {
	var problems []string
	currentYear := time.Now().UTC().Year()

	if strings.TrimSpace(title) == "" {
		problems = append(problems, "title cannot be blank")
	}
	if !models.ValidGenre(genre) {
		problems = append(problems, fmt.Sprintf("genre must be one of: %s", genreList()))
	}
	if year < models.MinReleaseYear || year > currentYear {
		problems = append(problems, fmt.Sprintf("release_year must be between %d and %d", models.MinReleaseYear, currentYear))
	}
	if rating < models.MinRating || rating > models.MaxRating {
		problems = append(problems, fmt.Sprintf("rating must be between %.1f and %.1f", models.MinRating, models.MaxRating))
	}
	if strings.TrimSpace(director) == "" {
		problems = append(problems, "director cannot be blank")
	}
	if duration < models.MinDurationMinutes {
		problems = append(problems, fmt.Sprintf("duration must be at least %d minutes", models.MinDurationMinutes))
	}
	if strings.TrimSpace(mainLead) == "" {
		problems = append(problems, "main_lead cannot be blank")
	}
	if !models.ValidPlatform(platform) {
		problems = append(problems, "streaming_platform must be one of: netflix, prime, disney, hulu, other")
	}
	if strings.TrimSpace(description) == "" {
		problems = append(problems, "description cannot be blank")
	} else if len(description) > models.MaxDescriptionLen {
		problems = append(problems, fmt.Sprintf("description cannot exceed %d characters", models.MaxDescriptionLen))
	}

	return problems
}

func genreList() string {
	names := make([]string, len(models.Genres))
	for i, g := range models.Genres {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	return ""
}
