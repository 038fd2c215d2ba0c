package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type mockReviewRepo struct {
	byID       map[string]*models.Review
	listResult []models.Review
	listTotal  int
	deleted    []string
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{byID: make(map[string]*models.Review)}
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	m.byID[review.ID] = review
	return nil
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*models.Review, error) {
	if review, ok := m.byID[id]; ok {
		return review, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReviewRepo) ListByMovie(ctx context.Context, movieID string, page, pageSize int) ([]models.Review, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newTestReviewService(repo *mockReviewRepo, movies *mockMovieRepo) *ReviewService {
	if movies == nil {
		movies = newMockMovieRepo()
	}
	return NewReviewService(repo, movies, nil, zap.NewNop())
}

func userClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleUser, Kind: models.PrincipalUser}
}

func adminClaims(adminID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: adminID, Role: models.RoleAdmin, Kind: models.PrincipalAdmin}
}

func TestReviewServiceCreate(t *testing.T) {
	repo := newMockReviewRepo()
	movies := newMockMovieRepo()
	movies.byID["m1"] = &models.Movie{ID: "m1", Title: "Arrival"}
	svc := newTestReviewService(repo, movies)

	review, err := svc.Create(context.Background(), "u1", "m1", models.CreateReviewRequest{Rating: 8, Comment: "Great pacing."})
	require.NoError(t, err)
	assert.Equal(t, "u1", review.UserID)
	assert.Equal(t, "m1", review.MovieID)
	assert.Equal(t, 8, review.Rating)
	assert.Len(t, repo.byID, 1)
}

func TestReviewServiceCreateCollectsRatingAndCommentFailures(t *testing.T) {
	repo := newMockReviewRepo()
	movies := newMockMovieRepo()
	movies.byID["m1"] = &models.Movie{ID: "m1"}
	svc := newTestReviewService(repo, movies)

	_, err := svc.Create(context.Background(), "u1", "m1", models.CreateReviewRequest{
		Rating:  0,
		Comment: strings.Repeat("x", models.MaxReviewComment+1),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Len(t, appErr.Details, 2)
	assert.Empty(t, repo.byID)
}

func TestReviewServiceCreateUnknownMovie(t *testing.T) {
	svc := newTestReviewService(newMockReviewRepo(), nil)

	_, err := svc.Create(context.Background(), "u1", "ghost", models.CreateReviewRequest{Rating: 7})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceDeleteByOwner(t *testing.T) {
	repo := newMockReviewRepo()
	repo.byID["r1"] = &models.Review{ID: "r1", UserID: "u1", MovieID: "m1"}
	svc := newTestReviewService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "r1", userClaims("u1")))
	assert.Contains(t, repo.deleted, "r1")
}

func TestReviewServiceDeleteByAdmin(t *testing.T) {
	repo := newMockReviewRepo()
	repo.byID["r1"] = &models.Review{ID: "r1", UserID: "u1", MovieID: "m1"}
	svc := newTestReviewService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "r1", adminClaims("a1")))
	assert.Contains(t, repo.deleted, "r1")
}

func TestReviewServiceDeleteForbiddenForOtherUser(t *testing.T) {
	repo := newMockReviewRepo()
	repo.byID["r1"] = &models.Review{ID: "r1", UserID: "u1", MovieID: "m1"}
	svc := newTestReviewService(repo, nil)

	err := svc.Delete(context.Background(), "r1", userClaims("u2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestReviewServiceListByMoviePagination(t *testing.T) {
	repo := newMockReviewRepo()
	repo.listTotal = 7
	repo.listResult = []models.Review{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}
	svc := newTestReviewService(repo, nil)

	reviews, pagination, err := svc.ListByMovie(context.Background(), "m1", 1, 3)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
	assert.Equal(t, 7, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
}
