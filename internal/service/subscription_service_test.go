package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type mockSubscriptionRepo struct {
	byUserID     map[string]*models.Subscription
	byCustomerID map[string]*models.Subscription
	updates      int
	expiring     []models.Subscription
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{
		byUserID:     make(map[string]*models.Subscription),
		byCustomerID: make(map[string]*models.Subscription),
	}
}

func (m *mockSubscriptionRepo) add(sub *models.Subscription) {
	m.byUserID[sub.UserID] = sub
	if sub.StripeCustomerID != nil {
		m.byCustomerID[*sub.StripeCustomerID] = sub
	}
}

func (m *mockSubscriptionRepo) FindByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	if sub, ok := m.byUserID[userID]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	if sub, ok := m.byCustomerID[customerID]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, sub *models.Subscription) error {
	m.updates++
	m.add(sub)
	return nil
}

func (m *mockSubscriptionRepo) ExpiringWithin(ctx context.Context, window time.Duration) ([]models.Subscription, error) {
	return m.expiring, nil
}

type mockSubscriptionUsers struct {
	byID map[string]*models.User
}

func (m *mockSubscriptionUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type mockBillingGateway struct {
	customerID      string
	session         *BillingSession
	sessionCalls    int
	checkoutCalls   int
	ensuredCustomer bool
}

func (m *mockBillingGateway) EnsureCustomer(ctx context.Context, user *models.User, existing *string) (string, error) {
	m.ensuredCustomer = true
	if existing != nil {
		return *existing, nil
	}
	return m.customerID, nil
}

func (m *mockBillingGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string, plan models.CheckoutPlan) (*models.CheckoutResponse, error) {
	m.checkoutCalls++
	return &models.CheckoutResponse{
		SessionID:   "cs_test_1",
		CheckoutURL: "https://checkout.stripe.com/pay/cs_test_1",
	}, nil
}

func (m *mockBillingGateway) GetSession(ctx context.Context, sessionID string) (*BillingSession, error) {
	m.sessionCalls++
	return m.session, nil
}

func newTestSubscriptionService(repo *mockSubscriptionRepo, users *mockSubscriptionUsers, gateway BillingGateway) *SubscriptionService {
	if users == nil {
		users = &mockSubscriptionUsers{byID: make(map[string]*models.User)}
	}
	return NewSubscriptionService(repo, users, gateway, nil, nil, zap.NewNop())
}

func basicSubscription(userID string) *models.Subscription {
	now := time.Now().UTC()
	return &models.Subscription{
		ID:        "sub-" + userID,
		UserID:    userID,
		PlanType:  models.PlanBasic,
		Status:    models.SubscriptionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSubscriptionStatusBasic(t *testing.T) {
	repo := newMockSubscriptionRepo()
	repo.add(basicSubscription("u1"))
	svc := newTestSubscriptionService(repo, nil, nil)

	view, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanBasic, view.PlanType)
	assert.False(t, view.Premium)
	assert.Zero(t, repo.updates)
}

func TestSubscriptionStatusDowngradesExpiredPremium(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	expired := time.Now().UTC().Add(-time.Hour)
	sub.PlanType = models.PlanPremium
	sub.ExpiresAt = &expired
	repo.add(sub)
	svc := newTestSubscriptionService(repo, nil, nil)

	view, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanBasic, view.PlanType)
	assert.False(t, view.Premium)
	assert.Nil(t, view.ExpiresAt)

	// The downgrade is persisted, not just rendered.
	assert.Equal(t, 1, repo.updates)
	stored := repo.byUserID["u1"]
	assert.Equal(t, models.PlanBasic, stored.PlanType)
	assert.Nil(t, stored.ExpiresAt)
}

func TestSubscriptionStatusNotFound(t *testing.T) {
	svc := newTestSubscriptionService(newMockSubscriptionRepo(), nil, nil)

	_, err := svc.Status(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStartCheckoutRejectsUnknownPlan(t *testing.T) {
	repo := newMockSubscriptionRepo()
	repo.add(basicSubscription("u1"))
	gateway := &mockBillingGateway{customerID: "cus_1"}
	svc := newTestSubscriptionService(repo, nil, gateway)

	_, err := svc.StartCheckout(context.Background(), "u1", models.CheckoutRequest{PlanType: "2_weeks"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPlanType.Code, appErrors.FromError(err).Code)
	assert.False(t, gateway.ensuredCustomer)
}

func TestStartCheckoutStoresNewCustomerID(t *testing.T) {
	repo := newMockSubscriptionRepo()
	repo.add(basicSubscription("u1"))
	users := &mockSubscriptionUsers{byID: map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com"},
	}}
	gateway := &mockBillingGateway{customerID: "cus_1"}
	svc := newTestSubscriptionService(repo, users, gateway)

	checkout, err := svc.StartCheckout(context.Background(), "u1", models.CheckoutRequest{PlanType: models.CheckoutPlanWeek})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", checkout.SessionID)
	assert.NotEmpty(t, checkout.CheckoutURL)

	stored := repo.byUserID["u1"]
	require.NotNil(t, stored.StripeCustomerID)
	assert.Equal(t, "cus_1", *stored.StripeCustomerID)
}

func TestStartCheckoutWithoutGateway(t *testing.T) {
	repo := newMockSubscriptionRepo()
	repo.add(basicSubscription("u1"))
	svc := newTestSubscriptionService(repo, nil, nil)

	_, err := svc.StartCheckout(context.Background(), "u1", models.CheckoutRequest{PlanType: models.CheckoutPlanWeek})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErrors.FromError(err).Code)
}

func TestConfirmCheckoutAppliesUpgrade(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	customerID := "cus_1"
	sub.StripeCustomerID = &customerID
	repo.add(sub)
	gateway := &mockBillingGateway{session: &BillingSession{
		ID:         "cs_test_1",
		CustomerID: "cus_1",
		Paid:       true,
		Plan:       models.CheckoutPlanMonth,
	}}
	svc := newTestSubscriptionService(repo, nil, gateway)

	view, err := svc.ConfirmCheckout(context.Background(), "u1", "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, view.PlanType)
	assert.True(t, view.Premium)
	require.NotNil(t, view.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), *view.ExpiresAt, time.Minute)
}

func TestConfirmCheckoutIsIdempotent(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	customerID := "cus_1"
	sub.StripeCustomerID = &customerID
	repo.add(sub)
	gateway := &mockBillingGateway{session: &BillingSession{
		ID:         "cs_test_1",
		CustomerID: "cus_1",
		Paid:       true,
		Plan:       models.CheckoutPlanOneDay,
	}}
	svc := newTestSubscriptionService(repo, nil, gateway)

	first, err := svc.ConfirmCheckout(context.Background(), "u1", "cs_test_1")
	require.NoError(t, err)
	firstExpiry := *first.ExpiresAt

	second, err := svc.ConfirmCheckout(context.Background(), "u1", "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, firstExpiry, *second.ExpiresAt)

	// The second confirm short-circuits on the stored session id.
	assert.Equal(t, 1, gateway.sessionCalls)
	assert.Equal(t, 1, repo.updates)
}

func TestConfirmCheckoutRejectsUnpaidSession(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	customerID := "cus_1"
	sub.StripeCustomerID = &customerID
	repo.add(sub)
	gateway := &mockBillingGateway{session: &BillingSession{
		ID:         "cs_test_1",
		CustomerID: "cus_1",
		Paid:       false,
		Plan:       models.CheckoutPlanWeek,
	}}
	svc := newTestSubscriptionService(repo, nil, gateway)

	_, err := svc.ConfirmCheckout(context.Background(), "u1", "cs_test_1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExternalService.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.PlanBasic, repo.byUserID["u1"].PlanType)
}

func TestConfirmCheckoutRejectsForeignSession(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	customerID := "cus_1"
	sub.StripeCustomerID = &customerID
	repo.add(sub)
	gateway := &mockBillingGateway{session: &BillingSession{
		ID:         "cs_test_1",
		CustomerID: "cus_other",
		Paid:       true,
		Plan:       models.CheckoutPlanWeek,
	}}
	svc := newTestSubscriptionService(repo, nil, gateway)

	_, err := svc.ConfirmCheckout(context.Background(), "u1", "cs_test_1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestConfirmCheckoutMissingSessionID(t *testing.T) {
	svc := newTestSubscriptionService(newMockSubscriptionRepo(), nil, &mockBillingGateway{})

	_, err := svc.ConfirmCheckout(context.Background(), "u1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestHandleCheckoutCompletedAppliesUpgradeOnce(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	customerID := "cus_1"
	sub.StripeCustomerID = &customerID
	repo.add(sub)
	svc := newTestSubscriptionService(repo, nil, &mockBillingGateway{})

	billing := &BillingSession{
		ID:         "cs_test_9",
		CustomerID: "cus_1",
		Paid:       true,
		Plan:       models.CheckoutPlanWeek,
	}
	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), billing))
	assert.Equal(t, models.PlanPremium, repo.byUserID["u1"].PlanType)
	assert.Equal(t, 1, repo.updates)

	// Redelivery of the same event is a no-op.
	require.NoError(t, svc.HandleCheckoutCompleted(context.Background(), billing))
	assert.Equal(t, 1, repo.updates)
}

func TestHandleCheckoutCompletedIgnoresUnknownCustomer(t *testing.T) {
	svc := newTestSubscriptionService(newMockSubscriptionRepo(), nil, &mockBillingGateway{})

	err := svc.HandleCheckoutCompleted(context.Background(), &BillingSession{
		ID:         "cs_test_9",
		CustomerID: "cus_ghost",
		Paid:       true,
		Plan:       models.CheckoutPlanWeek,
	})
	assert.NoError(t, err)
}

func TestHandleSubscriptionDeletedDowngrades(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	customerID := "cus_1"
	stripeSubID := "sub_stripe_1"
	expires := time.Now().UTC().Add(time.Hour)
	sub.PlanType = models.PlanPremium
	sub.StripeCustomerID = &customerID
	sub.StripeSubscriptionID = &stripeSubID
	sub.ExpiresAt = &expires
	repo.add(sub)
	svc := newTestSubscriptionService(repo, nil, nil)

	require.NoError(t, svc.HandleSubscriptionDeleted(context.Background(), "cus_1"))
	stored := repo.byUserID["u1"]
	assert.Equal(t, models.PlanBasic, stored.PlanType)
	assert.Equal(t, models.SubscriptionCancelled, stored.Status)
	assert.Nil(t, stored.ExpiresAt)
	assert.Nil(t, stored.StripeSubscriptionID)
}

func TestAdminUpdateClearsExpiryOnBasic(t *testing.T) {
	repo := newMockSubscriptionRepo()
	sub := basicSubscription("u1")
	expires := time.Now().UTC().Add(time.Hour)
	sub.PlanType = models.PlanPremium
	sub.ExpiresAt = &expires
	repo.add(sub)
	svc := newTestSubscriptionService(repo, nil, nil)

	basic := models.PlanBasic
	view, err := svc.AdminUpdate(context.Background(), "u1", models.AdminSubscriptionUpdate{PlanType: &basic})
	require.NoError(t, err)
	assert.Equal(t, models.PlanBasic, view.PlanType)
	assert.Nil(t, view.ExpiresAt)
}

func TestAdminUpdateRejectsUnknownStatus(t *testing.T) {
	repo := newMockSubscriptionRepo()
	repo.add(basicSubscription("u1"))
	svc := newTestSubscriptionService(repo, nil, nil)

	bad := models.SubscriptionStatus("paused")
	_, err := svc.AdminUpdate(context.Background(), "u1", models.AdminSubscriptionUpdate{Status: &bad})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Contains(t, appErr.Details, "status must be one of: active, inactive, cancelled")
	assert.Zero(t, repo.updates)
}
