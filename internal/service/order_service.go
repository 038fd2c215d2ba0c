package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type orderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}

// OrderService records movie purchases.
type OrderService struct {
	repo      orderRepository
	movies    reviewMovieLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrderService constructs the order service.
func NewOrderService(repo orderRepository, movies reviewMovieLookup, validate *validator.Validate, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OrderService{repo: repo, movies: movies, validator: validate, logger: logger}
}

// Create places a pending order for a movie.
func (s *OrderService) Create(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationMessages(err))
	}

	if _, err := s.movies.FindByID(ctx, req.MovieID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "movie not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load movie")
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		MovieID:   req.MovieID,
		Amount:    req.Amount,
		Status:    models.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}

	s.logger.Info("order created", zap.String("order_id", order.ID), zap.String("user_id", userID))
	return order, nil
}

// ListByUser returns a page of the caller's orders.
func (s *OrderService) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Order, *models.Pagination, error) {
	orders, total, err := s.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orders")
	}
	return orders, models.NewPagination(page, pageSize, total), nil
}

// UpdateStatus transitions an order to a new state.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, appErrors.Validation([]string{"status must be one of: pending, completed, cancelled"})
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update order")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	return order, nil
}
