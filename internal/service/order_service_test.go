package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type mockOrderRepo struct {
	byID       map[string]*models.Order
	listResult []models.Order
	listTotal  int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*models.Order)}
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	m.byID[order.ID] = order
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	if order, ok := m.byID[id]; ok {
		return order, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Order, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	order, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	order.Status = status
	return nil
}

func newTestOrderService(repo *mockOrderRepo, movies *mockMovieRepo) *OrderService {
	if movies == nil {
		movies = newMockMovieRepo()
	}
	return NewOrderService(repo, movies, nil, zap.NewNop())
}

const orderMovieID = "7b0f5e9a-3f64-4c2f-90a1-6a54c4d2f8f1"

func TestOrderServiceCreate(t *testing.T) {
	repo := newMockOrderRepo()
	movies := newMockMovieRepo()
	movies.byID[orderMovieID] = &models.Movie{ID: orderMovieID, Title: "Arrival"}
	svc := newTestOrderService(repo, movies)

	order, err := svc.Create(context.Background(), "u1", models.CreateOrderRequest{MovieID: orderMovieID, Amount: 4.99})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "u1", order.UserID)
	assert.InDelta(t, 4.99, order.Amount, 0.001)
}

func TestOrderServiceCreateRejectsNegativeAmount(t *testing.T) {
	repo := newMockOrderRepo()
	svc := newTestOrderService(repo, nil)

	_, err := svc.Create(context.Background(), "u1", models.CreateOrderRequest{MovieID: orderMovieID, Amount: -0.01})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.byID)
}

func TestOrderServiceCreateAcceptsZeroAmount(t *testing.T) {
	repo := newMockOrderRepo()
	movies := newMockMovieRepo()
	movies.byID[orderMovieID] = &models.Movie{ID: orderMovieID, Title: "Arrival"}
	svc := newTestOrderService(repo, movies)

	order, err := svc.Create(context.Background(), "u1", models.CreateOrderRequest{MovieID: orderMovieID, Amount: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, order.Amount, 0.001)
}

func TestOrderServiceCreateUnknownMovie(t *testing.T) {
	svc := newTestOrderService(newMockOrderRepo(), nil)

	_, err := svc.Create(context.Background(), "u1", models.CreateOrderRequest{MovieID: orderMovieID, Amount: 4.99})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceUpdateStatus(t *testing.T) {
	repo := newMockOrderRepo()
	repo.byID["o1"] = &models.Order{ID: "o1", Status: models.OrderPending}
	svc := newTestOrderService(repo, nil)

	order, err := svc.UpdateStatus(context.Background(), "o1", models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, order.Status)
}

func TestOrderServiceUpdateStatusRejectsUnknownState(t *testing.T) {
	repo := newMockOrderRepo()
	repo.byID["o1"] = &models.Order{ID: "o1", Status: models.OrderPending}
	svc := newTestOrderService(repo, nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", models.OrderStatus("refunded"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Equal(t, models.OrderPending, repo.byID["o1"].Status)
}

func TestOrderServiceListByUserPagination(t *testing.T) {
	repo := newMockOrderRepo()
	repo.listTotal = 11
	repo.listResult = []models.Order{{ID: "o1"}, {ID: "o2"}}
	svc := newTestOrderService(repo, nil)

	orders, pagination, err := svc.ListByUser(context.Background(), "u1", 1, 5)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, 11, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
}
