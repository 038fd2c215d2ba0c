package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cinevault/cinevault-api/internal/models"
)

const subscriptionColumns = `id, user_id, plan_type, status, expires_at, stripe_customer_id, stripe_subscription_id, stripe_session_id, created_at, updated_at`

// SubscriptionRepository provides database access for billing records.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new instance of SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindByUserID returns the subscription owned by a user.
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE user_id = $1 LIMIT 1`, subscriptionColumns)
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subscription by user: %w", err)
	}
	return &sub, nil
}

// FindByStripeCustomerID resolves a subscription by its external customer id.
func (r *SubscriptionRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE stripe_customer_id = $1 LIMIT 1`, subscriptionColumns)
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, customerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subscription by stripe customer: %w", err)
	}
	return &sub, nil
}

// Create inserts a subscription row.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	const query = `INSERT INTO subscriptions (id, user_id, plan_type, status, expires_at, stripe_customer_id, stripe_subscription_id, stripe_session_id, created_at, updated_at)
		VALUES (:id, :user_id, :plan_type, :status, :expires_at, :stripe_customer_id, :stripe_subscription_id, :stripe_session_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// Update persists mutable fields of a subscription.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subscriptions SET plan_type = :plan_type, status = :status, expires_at = :expires_at,
		stripe_customer_id = :stripe_customer_id, stripe_subscription_id = :stripe_subscription_id,
		stripe_session_id = :stripe_session_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// ExpiringWithin returns active premium subscriptions whose expiry falls in
// the window (now, now+window].
func (r *SubscriptionRepository) ExpiringWithin(ctx context.Context, window time.Duration) ([]models.Subscription, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`SELECT %s FROM subscriptions
		WHERE plan_type = 'premium' AND status = 'active'
		AND expires_at > $1 AND expires_at <= $2
		ORDER BY expires_at ASC`, subscriptionColumns)
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, now, now.Add(window)); err != nil {
		return nil, fmt.Errorf("list expiring subscriptions: %w", err)
	}
	return subs, nil
}
