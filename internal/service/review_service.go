package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	ListByMovie(ctx context.Context, movieID string, page, pageSize int) ([]models.Review, int, error)
	Delete(ctx context.Context, id string) error
}

type reviewMovieLookup interface {
	FindByID(ctx context.Context, id string) (*models.Movie, error)
}

// ReviewService handles user reviews on catalog entries.
type ReviewService struct {
	repo      reviewRepository
	movies    reviewMovieLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs the review service.
func NewReviewService(repo reviewRepository, movies reviewMovieLookup, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{repo: repo, movies: movies, validator: validate, logger: logger}
}

// Create posts a review on a movie.
func (s *ReviewService) Create(ctx context.Context, userID, movieID string, req models.CreateReviewRequest) (*models.Review, error) {
	var problems []string
	if req.Rating < models.MinReviewRating || req.Rating > models.MaxReviewRating {
		problems = append(problems, fmt.Sprintf("rating must be between %d and %d", models.MinReviewRating, models.MaxReviewRating))
	}
	if len(req.Comment) > models.MaxReviewComment {
		problems = append(problems, fmt.Sprintf("comment cannot exceed %d characters", models.MaxReviewComment))
	}
	if len(problems) > 0 {
		return nil, appErrors.Validation(problems)
	}

	if _, err := s.movies.FindByID(ctx, movieID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "movie not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load movie")
	}

	now := time.Now().UTC()
	review := &models.Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		MovieID:   movieID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	return review, nil
}

// ListByMovie returns a page of reviews for a movie.
func (s *ReviewService) ListByMovie(ctx context.Context, movieID string, page, pageSize int) ([]models.Review, *models.Pagination, error) {
	reviews, total, err := s.repo.ListByMovie(ctx, movieID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, models.NewPagination(page, pageSize, total), nil
}

// Delete removes a review. Owners can delete their own, admins anyone's.
func (s *ReviewService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}

	if review.UserID != claims.UserID && !claims.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete another user's review")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	return nil
}
