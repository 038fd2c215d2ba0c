package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type mockMovieRepo struct {
	byID       map[string]*models.Movie
	listResult []models.Movie
	listTotal  int
	lastFilter models.MovieFilter
	created    []*models.Movie
	updated    []*models.Movie
	deleted    []string
}

func newMockMovieRepo() *mockMovieRepo {
	return &mockMovieRepo{byID: make(map[string]*models.Movie)}
}

func (m *mockMovieRepo) List(ctx context.Context, filter models.MovieFilter) ([]models.Movie, int, error) {
	m.lastFilter = filter
	return m.listResult, m.listTotal, nil
}

func (m *mockMovieRepo) FindByID(ctx context.Context, id string) (*models.Movie, error) {
	if movie, ok := m.byID[id]; ok {
		return movie, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMovieRepo) Create(ctx context.Context, movie *models.Movie) error {
	m.created = append(m.created, movie)
	m.byID[movie.ID] = movie
	return nil
}

func (m *mockMovieRepo) Update(ctx context.Context, movie *models.Movie) error {
	m.updated = append(m.updated, movie)
	m.byID[movie.ID] = movie
	return nil
}

func (m *mockMovieRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockImageStore struct {
	saved   map[string][]byte
	deleted []string
}

func newMockImageStore() *mockImageStore {
	return &mockImageStore{saved: make(map[string][]byte)}
}

func (m *mockImageStore) Save(filename string, data []byte) (string, error) {
	m.saved[filename] = data
	return filename, nil
}

func (m *mockImageStore) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	delete(m.saved, filename)
	return nil
}

type mockFetcher struct {
	allowed     bool
	data        []byte
	contentType string
}

func (m *mockFetcher) Allowed(rawURL string) bool { return m.allowed }

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	return m.data, m.contentType, nil
}

func newTestMovieService(repo *mockMovieRepo, store *mockImageStore, fetcher *mockFetcher) *MovieService {
	if store == nil {
		store = newMockImageStore()
	}
	if fetcher == nil {
		fetcher = &mockFetcher{}
	}
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop())
	return NewMovieService(repo, store, fetcher, cacheSvc, nil, validator.New(), zap.NewNop(), MovieConfig{
		PublicBaseURL: "http://localhost:8080",
	})
}

func validCreateRequest() models.CreateMovieRequest {
	return models.CreateMovieRequest{
		Title:             "Arrival",
		Genre:             models.GenreSciFi,
		ReleaseYear:       2016,
		Rating:            7.9,
		Director:          "Denis Villeneuve",
		Duration:          116,
		MainLead:          "Amy Adams",
		StreamingPlatform: models.PlatformNetflix,
		Description:       "A linguist deciphers an alien language.",
		Premium:           false,
		Poster: &models.ImageSource{Upload: &models.ImageUpload{
			Filename:    "poster.png",
			ContentType: "image/png",
			Data:        []byte("poster-bytes"),
		}},
		Banner: &models.ImageSource{Upload: &models.ImageUpload{
			Filename:    "banner.png",
			ContentType: "image/png",
			Data:        []byte("banner-bytes"),
		}},
	}
}

func TestMovieServiceCreate(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	detail, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "Arrival", detail.Title)
	assert.Equal(t, models.GenreSciFi, detail.Genre)
	require.Len(t, repo.created, 1)
	require.NotNil(t, detail.PosterURL)
	require.NotNil(t, detail.BannerURL)
}

func TestMovieServiceCreateRequiresBothAttachments(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	req := validCreateRequest()
	req.Poster = nil
	req.Banner = nil

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Contains(t, appErr.Details, "poster must be attached")
	assert.Contains(t, appErr.Details, "banner must be attached")
	assert.Empty(t, repo.created)
}

func TestMovieServiceCreateRequiresBanner(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	req := validCreateRequest()
	req.Banner = nil

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "banner must be attached", appErr.Details[0])
	assert.Empty(t, repo.created)
}

func TestMovieServiceCreateCollectsAllValidationFailures(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	req := validCreateRequest()
	req.Rating = 11
	req.ReleaseYear = 1815
	req.Duration = 5

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Len(t, appErr.Details, 3)
	assert.Empty(t, repo.created)
}

func TestMovieServiceCreateRejectsRatingJustAboveMax(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	req := validCreateRequest()
	req.Rating = 10.01
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)

	req.Rating = 10.0
	_, err = svc.Create(context.Background(), req)
	assert.NoError(t, err)
}

func TestMovieServiceCreateRejectsFutureReleaseYear(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	req := validCreateRequest()
	req.ReleaseYear = time.Now().UTC().Year() + 1
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestMovieServiceCreateStoresUploadedPoster(t *testing.T) {
	repo := newMockMovieRepo()
	store := newMockImageStore()
	svc := newTestMovieService(repo, store, nil)

	req := validCreateRequest()
	req.Poster = &models.ImageSource{Upload: &models.ImageUpload{
		Filename:    "poster.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	}}

	detail, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, detail.PosterURL)
	assert.Contains(t, *detail.PosterURL, "http://localhost:8080/uploads/poster-")
	assert.Len(t, store.saved, 2)
}

func TestMovieServiceCreateRejectsUnknownImageType(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	req := validCreateRequest()
	req.Poster = &models.ImageSource{Upload: &models.ImageUpload{
		Filename:    "poster.gif",
		ContentType: "image/gif",
		Data:        []byte("gif-bytes"),
	}}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.created)
}

func TestMovieServiceCreateRejectsDisallowedImageHost(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, &mockFetcher{allowed: false})

	req := validCreateRequest()
	req.Banner = &models.ImageSource{URL: "https://evil.example.com/banner.png"}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.created)
}

func TestMovieServiceCreateFetchesAllowedImageURL(t *testing.T) {
	repo := newMockMovieRepo()
	store := newMockImageStore()
	svc := newTestMovieService(repo, store, &mockFetcher{
		allowed:     true,
		data:        []byte("jpeg-bytes"),
		contentType: "image/jpeg",
	})

	req := validCreateRequest()
	req.Banner = &models.ImageSource{URL: "https://images.cinevault.io/banner.jpg"}

	detail, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, detail.BannerURL)
	assert.Len(t, store.saved, 2)
}

func TestMovieServiceUpdatePartial(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	detail, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	newTitle := "Arrival (Director's Cut)"
	updated, err := svc.Update(context.Background(), detail.ID, models.UpdateMovieRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, models.GenreSciFi, updated.Genre)
	assert.Equal(t, 2016, updated.ReleaseYear)
}

func TestMovieServiceUpdateInvalidRatingLeavesMovieUnchanged(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	detail, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	bad := 11.0
	_, err = svc.Update(context.Background(), detail.ID, models.UpdateMovieRequest{Rating: &bad})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.updated)

	current, err := svc.Get(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.InDelta(t, 7.9, current.Rating, 0.001)
}

func TestMovieServiceUpdateRemovePoster(t *testing.T) {
	repo := newMockMovieRepo()
	store := newMockImageStore()
	svc := newTestMovieService(repo, store, nil)

	req := validCreateRequest()
	req.Poster = &models.ImageSource{Upload: &models.ImageUpload{ContentType: "image/png", Data: []byte("png")}}
	detail, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, detail.PosterURL)

	updated, err := svc.Update(context.Background(), detail.ID, models.UpdateMovieRequest{RemovePoster: true})
	require.NoError(t, err)
	assert.Nil(t, updated.PosterURL)
	assert.Len(t, store.deleted, 1)
}

func TestMovieServiceDeleteRemovesAttachments(t *testing.T) {
	repo := newMockMovieRepo()
	store := newMockImageStore()
	svc := newTestMovieService(repo, store, nil)

	req := validCreateRequest()
	req.Poster = &models.ImageSource{Upload: &models.ImageUpload{ContentType: "image/png", Data: []byte("png")}}
	detail, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), detail.ID))
	assert.Len(t, repo.deleted, 1)
	assert.Len(t, store.deleted, 2)

	_, err = svc.Get(context.Background(), detail.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMovieServiceListPaginationMath(t *testing.T) {
	repo := newMockMovieRepo()
	repo.listTotal = 25
	for i := 0; i < 10; i++ {
		repo.listResult = append(repo.listResult, models.Movie{ID: fmt.Sprintf("m%d", i), Title: fmt.Sprintf("Movie %d", i)})
	}
	svc := newTestMovieService(repo, nil, nil)

	items, pagination, err := svc.List(context.Background(), models.MovieFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, 25, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
}

func TestMovieServiceListEmptyFilterMatchIsNotAnError(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	items, pagination, err := svc.List(context.Background(), models.MovieFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)
}

func TestMovieServiceListByGenreRejectsUnknownGenre(t *testing.T) {
	svc := newTestMovieService(newMockMovieRepo(), nil, nil)

	_, _, err := svc.ListByGenre(context.Background(), models.Genre("western"), models.MovieFilter{Page: 1, PageSize: 10})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestMovieServiceListByGenreSetsFilter(t *testing.T) {
	repo := newMockMovieRepo()
	svc := newTestMovieService(repo, nil, nil)

	_, _, err := svc.ListByGenre(context.Background(), models.GenreHorror, models.MovieFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Genre)
	assert.Equal(t, models.GenreHorror, *repo.lastFilter.Genre)
}
