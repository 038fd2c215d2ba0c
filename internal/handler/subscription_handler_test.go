package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/middleware"
	"github.com/cinevault/cinevault-api/internal/models"
	"github.com/cinevault/cinevault-api/internal/service"
)

type subscriptionRepoStub struct {
	byUserID map[string]*models.Subscription
}

func (m *subscriptionRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	if sub, ok := m.byUserID[userID]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (m *subscriptionRepoStub) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	return nil, sql.ErrNoRows
}

func (m *subscriptionRepoStub) Update(ctx context.Context, sub *models.Subscription) error {
	m.byUserID[sub.UserID] = sub
	return nil
}

func (m *subscriptionRepoStub) ExpiringWithin(ctx context.Context, window time.Duration) ([]models.Subscription, error) {
	return nil, nil
}

type subscriptionUserStub struct{}

func (subscriptionUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Email: id + "@example.com"}, nil
}

func newSubscriptionHandler(repo *subscriptionRepoStub) *SubscriptionHandler {
	svc := service.NewSubscriptionService(repo, subscriptionUserStub{}, nil, nil, nil, zap.NewNop())
	return NewSubscriptionHandler(svc)
}

func authedContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestSubscriptionHandlerStatus(t *testing.T) {
	repo := &subscriptionRepoStub{byUserID: map[string]*models.Subscription{
		"u1": {ID: "s1", UserID: "u1", PlanType: models.PlanBasic, Status: models.SubscriptionActive},
	}}
	handler := newSubscriptionHandler(repo)
	c, w := authedContext(t, http.MethodGet, "/subscriptions/status", nil, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.SubscriptionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.PlanBasic, envelope.Data.PlanType)
	assert.False(t, envelope.Data.Premium)
}

func TestSubscriptionHandlerStatusWithoutClaims(t *testing.T) {
	handler := newSubscriptionHandler(&subscriptionRepoStub{byUserID: map[string]*models.Subscription{}})
	c, w := authedContext(t, http.MethodGet, "/subscriptions/status", nil, nil)

	handler.Status(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscriptionHandlerCheckoutInvalidPlan(t *testing.T) {
	repo := &subscriptionRepoStub{byUserID: map[string]*models.Subscription{
		"u1": {ID: "s1", UserID: "u1", PlanType: models.PlanBasic, Status: models.SubscriptionActive},
	}}
	handler := newSubscriptionHandler(repo)
	body, _ := json.Marshal(models.CheckoutRequest{PlanType: "forever"})
	c, w := authedContext(t, http.MethodPost, "/subscriptions", body, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})

	handler.Checkout(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubscriptionHandlerConfirmRequiresSessionID(t *testing.T) {
	repo := &subscriptionRepoStub{byUserID: map[string]*models.Subscription{
		"u1": {ID: "s1", UserID: "u1", PlanType: models.PlanBasic, Status: models.SubscriptionActive},
	}}
	handler := newSubscriptionHandler(repo)
	c, w := authedContext(t, http.MethodGet, "/subscriptions/success", nil, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})

	handler.Confirm(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubscriptionHandlerAdminUpdate(t *testing.T) {
	repo := &subscriptionRepoStub{byUserID: map[string]*models.Subscription{
		"u1": {ID: "s1", UserID: "u1", PlanType: models.PlanBasic, Status: models.SubscriptionActive},
	}}
	handler := newSubscriptionHandler(repo)
	premium := models.PlanPremium
	expires := time.Now().UTC().Add(48 * time.Hour)
	body, _ := json.Marshal(models.AdminSubscriptionUpdate{PlanType: &premium, ExpiresAt: &expires})
	c, w := authedContext(t, http.MethodPatch, "/users/u1/subscription", body, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "u1"}}

	handler.AdminUpdate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.SubscriptionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.PlanPremium, envelope.Data.PlanType)
	assert.True(t, envelope.Data.Premium)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc := service.NewSubscriptionService(&subscriptionRepoStub{byUserID: map[string]*models.Subscription{}}, subscriptionUserStub{}, nil, nil, nil, zap.NewNop())
	handler := NewWebhookHandler(svc, "whsec_test", zap.NewNop())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader([]byte(`{"type":"checkout.session.completed"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	c.Request = req

	handler.Stripe(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
