package models

import "time"

// PlanType is the billing tier a subscription is on.
type PlanType string

const (
	PlanBasic   PlanType = "basic"
	PlanPremium PlanType = "premium"
)

// SubscriptionStatus enumerates the lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// ValidSubscriptionStatus reports whether the status is a known value.
func ValidSubscriptionStatus(s SubscriptionStatus) bool {
	switch s {
	case SubscriptionActive, SubscriptionInactive, SubscriptionCancelled:
		return true
	}
	return false
}

// CheckoutPlan is a purchasable premium duration.
type CheckoutPlan string

const (
	CheckoutPlanOneDay CheckoutPlan = "1_day"
	CheckoutPlanWeek   CheckoutPlan = "7_days"
	CheckoutPlanMonth  CheckoutPlan = "1_month"
)

// Duration returns the premium window the plan buys.
func (p CheckoutPlan) Duration() time.Duration {
	switch p {
	case CheckoutPlanOneDay:
		return 24 * time.Hour
	case CheckoutPlanWeek:
		return 7 * 24 * time.Hour
	case CheckoutPlanMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// ValidCheckoutPlan reports whether the plan is a known value.
func ValidCheckoutPlan(p CheckoutPlan) bool {
	return p.Duration() > 0
}

// Subscription represents a user's billing record.
type Subscription struct {
	ID                   string             `db:"id" json:"id"`
	UserID               string             `db:"user_id" json:"user_id"`
	PlanType             PlanType           `db:"plan_type" json:"plan_type"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	ExpiresAt            *time.Time         `db:"expires_at" json:"expires_at,omitempty"`
	StripeCustomerID     *string            `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID *string            `db:"stripe_subscription_id" json:"-"`
	StripeSessionID      *string            `db:"stripe_session_id" json:"-"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// Premium reports whether the subscription currently grants premium access:
// the plan is premium, the status is active, and the expiry has not passed.
func (s *Subscription) Premium(now time.Time) bool {
	if s.PlanType != PlanPremium || s.Status != SubscriptionActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// Expired reports whether a premium window has lapsed.
func (s *Subscription) Expired(now time.Time) bool {
	return s.PlanType == PlanPremium && s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// CheckoutRequest begins a paid upgrade.
type CheckoutRequest struct {
	PlanType CheckoutPlan `json:"plan_type" validate:"required"`
}

// CheckoutResponse carries the hosted payment page for the client.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// AdminSubscriptionUpdate is the back-office subscription override payload.
type AdminSubscriptionUpdate struct {
	PlanType  *PlanType           `json:"plan_type"`
	Status    *SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time          `json:"expires_at"`
}

// SubscriptionView is the API representation of a subscription.
type SubscriptionView struct {
	ID        string             `json:"id"`
	PlanType  PlanType           `json:"plan_type"`
	Status    SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	Premium   bool               `json:"premium"`
}

// View maps a subscription to its API shape.
func (s *Subscription) View(now time.Time) SubscriptionView {
	return SubscriptionView{
		ID:        s.ID,
		PlanType:  s.PlanType,
		Status:    s.Status,
		ExpiresAt: s.ExpiresAt,
		Premium:   s.Premium(now),
	}
}
