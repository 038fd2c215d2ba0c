package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type subscriptionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	Update(ctx context.Context, sub *models.Subscription) error
	ExpiringWithin(ctx context.Context, window time.Duration) ([]models.Subscription, error)
}

type subscriptionUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SubscriptionService implements the premium upgrade lifecycle.
type SubscriptionService struct {
	repo          subscriptionRepository
	users         subscriptionUserLookup
	gateway       BillingGateway
	notifications *NotificationService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewSubscriptionService constructs the subscription service.
func NewSubscriptionService(repo subscriptionRepository, users subscriptionUserLookup, gateway BillingGateway, notifications *NotificationService, validate *validator.Validate, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubscriptionService{
		repo:          repo,
		users:         users,
		gateway:       gateway,
		notifications: notifications,
		validator:     validate,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Status returns the caller's subscription. A premium plan whose window has
// lapsed is downgraded to basic before being returned, so the stored record
// always matches what the caller sees.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*models.SubscriptionView, error) {
	sub, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sub.Expired(now) {
		if err := s.downgrade(ctx, sub, models.SubscriptionActive); err != nil {
			return nil, err
		}
	}

	view := sub.View(now)
	return &view, nil
}

// StartCheckout creates a hosted payment session for a premium plan.
func (s *SubscriptionService) StartCheckout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationMessages(err))
	}
	if !models.ValidCheckoutPlan(req.PlanType) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPlanType, "plan_type must be one of: 1_day, 7_days, 1_month")
	}
	if s.gateway == nil {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "billing is not configured")
	}

	sub, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	customerID, err := s.gateway.EnsureCustomer(ctx, user, sub.StripeCustomerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to prepare billing customer")
	}
	if sub.StripeCustomerID == nil || *sub.StripeCustomerID != customerID {
		sub.StripeCustomerID = &customerID
		sub.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, sub); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store billing customer")
		}
	}

	checkout, err := s.gateway.CreateCheckoutSession(ctx, customerID, userID, req.PlanType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to create checkout session")
	}

	s.logger.Info("checkout session created",
		zap.String("user_id", userID),
		zap.String("plan_type", string(req.PlanType)))
	return checkout, nil
}

// ConfirmCheckout verifies a paid session and applies the upgrade. Confirming
// the same session twice is a no-op returning the current state.
func (s *SubscriptionService) ConfirmCheckout(ctx context.Context, userID, sessionID string) (*models.SubscriptionView, error) {
	if sessionID == "" {
		return nil, appErrors.Validation([]string{"session_id is required"})
	}
	if s.gateway == nil {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "billing is not configured")
	}

	sub, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sub.StripeSessionID != nil && *sub.StripeSessionID == sessionID {
		view := sub.View(s.now())
		return &view, nil
	}

	billing, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to verify checkout session")
	}
	if !billing.Paid {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "checkout session has not been paid")
	}
	if sub.StripeCustomerID == nil || billing.CustomerID != *sub.StripeCustomerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "checkout session does not belong to this account")
	}

	if err := s.applyUpgrade(ctx, sub, billing); err != nil {
		return nil, err
	}

	view := sub.View(s.now())
	return &view, nil
}

// HandleCheckoutCompleted processes the provider's checkout.session.completed
// event. The upgrade is applied once per session regardless of redelivery.
func (s *SubscriptionService) HandleCheckoutCompleted(ctx context.Context, billing *BillingSession) error {
	if !billing.Paid {
		s.logger.Info("ignoring unpaid checkout session", zap.String("session_id", billing.ID))
		return nil
	}
	if billing.CustomerID == "" {
		return appErrors.Clone(appErrors.ErrExternalService, "checkout session has no customer")
	}

	sub, err := s.repo.FindByStripeCustomerID(ctx, billing.CustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("checkout completed for unknown customer", zap.String("customer_id", billing.CustomerID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}

	if sub.StripeSessionID != nil && *sub.StripeSessionID == billing.ID {
		return nil
	}

	return s.applyUpgrade(ctx, sub, billing)
}

// HandleSubscriptionDeleted reverts the account to basic when the provider
// cancels the underlying subscription.
func (s *SubscriptionService) HandleSubscriptionDeleted(ctx context.Context, customerID string) error {
	sub, err := s.repo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("cancellation for unknown customer", zap.String("customer_id", customerID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}

	if err := s.downgrade(ctx, sub, models.SubscriptionCancelled); err != nil {
		return err
	}
	s.logger.Info("subscription cancelled", zap.String("user_id", sub.UserID))
	return nil
}

// AdminUpdate lets back-office staff override a user's subscription record.
func (s *SubscriptionService) AdminUpdate(ctx context.Context, userID string, req models.AdminSubscriptionUpdate) (*models.SubscriptionView, error) {
	sub, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	var problems []string
	if req.PlanType != nil {
		if *req.PlanType != models.PlanBasic && *req.PlanType != models.PlanPremium {
			problems = append(problems, "plan_type must be basic or premium")
		} else {
			sub.PlanType = *req.PlanType
		}
	}
	if req.Status != nil {
		if !models.ValidSubscriptionStatus(*req.Status) {
			problems = append(problems, "status must be one of: active, inactive, cancelled")
		} else {
			sub.Status = *req.Status
		}
	}
	if len(problems) > 0 {
		return nil, appErrors.Validation(problems)
	}
	if req.ExpiresAt != nil {
		sub.ExpiresAt = req.ExpiresAt
	}
	if sub.PlanType == models.PlanBasic {
		sub.ExpiresAt = nil
	}

	sub.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subscription")
	}

	view := sub.View(s.now())
	return &view, nil
}

// ExpiringWithin lists premium subscriptions whose window ends inside the
// given duration. Used by the expiry reminder scan.
func (s *SubscriptionService) ExpiringWithin(ctx context.Context, window time.Duration) ([]models.Subscription, error) {
	subs, err := s.repo.ExpiringWithin(ctx, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expiring subscriptions")
	}
	return subs, nil
}

func (s *SubscriptionService) find(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	return sub, nil
}

func (s *SubscriptionService) applyUpgrade(ctx context.Context, sub *models.Subscription, billing *BillingSession) error {
	plan := billing.Plan
	if !models.ValidCheckoutPlan(plan) {
		return appErrors.Clone(appErrors.ErrExternalService, "checkout session carries an unknown plan")
	}

	now := s.now()
	expiresAt := now.Add(plan.Duration())

	wasPremium := sub.Premium(now)

	sub.PlanType = models.PlanPremium
	sub.Status = models.SubscriptionActive
	sub.ExpiresAt = &expiresAt
	sub.StripeSessionID = &billing.ID
	if billing.SubscriptionID != "" {
		sub.StripeSubscriptionID = &billing.SubscriptionID
	}
	sub.UpdatedAt = now

	if err := s.repo.Update(ctx, sub); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply upgrade")
	}

	s.logger.Info("subscription upgraded",
		zap.String("user_id", sub.UserID),
		zap.String("plan_type", string(plan)),
		zap.Time("expires_at", expiresAt))

	if !wasPremium {
		s.notifications.NotifyUpgrade(ctx, sub.UserID, expiresAt)
	}
	return nil
}

func (s *SubscriptionService) downgrade(ctx context.Context, sub *models.Subscription, status models.SubscriptionStatus) error {
	sub.PlanType = models.PlanBasic
	sub.Status = status
	sub.ExpiresAt = nil
	sub.StripeSubscriptionID = nil
	sub.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, sub); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to downgrade subscription")
	}
	return nil
}
