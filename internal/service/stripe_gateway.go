package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"

	"github.com/cinevault/cinevault-api/internal/models"
)

// BillingSession is the gateway-neutral view of a checkout session.
type BillingSession struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	Paid           bool
	Plan           models.CheckoutPlan
}

// BillingGateway abstracts the payment provider for the subscription flows.
type BillingGateway interface {
	EnsureCustomer(ctx context.Context, user *models.User, existingID *string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, userID string, plan models.CheckoutPlan) (*models.CheckoutResponse, error)
	GetSession(ctx context.Context, sessionID string) (*BillingSession, error)
}

// StripeConfig holds the billing credentials and plan price mapping.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceIDOneDay string
	PriceIDWeek   string
	PriceIDMonth  string
	SuccessURL    string
	CancelURL     string
}

// PriceFor maps a checkout plan to its configured Stripe price.
func (c StripeConfig) PriceFor(plan models.CheckoutPlan) string {
	switch plan {
	case models.CheckoutPlanOneDay:
		return c.PriceIDOneDay
	case models.CheckoutPlanWeek:
		return c.PriceIDWeek
	case models.CheckoutPlanMonth:
		return c.PriceIDMonth
	}
	return ""
}

// StripeGateway implements BillingGateway against the Stripe API.
type StripeGateway struct {
	config StripeConfig
}

// NewStripeGateway configures the Stripe client key and returns the gateway.
func NewStripeGateway(config StripeConfig) *StripeGateway {
	stripe.Key = config.SecretKey
	return &StripeGateway{config: config}
}

// EnsureCustomer finds or creates a Stripe customer for the user.
func (g *StripeGateway) EnsureCustomer(ctx context.Context, user *models.User, existingID *string) (string, error) {
	if existingID != nil && *existingID != "" {
		return *existingID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(fmt.Sprintf("%s %s", user.FirstName, user.LastName)),
		Metadata: map[string]string{
			"user_id": user.ID,
		},
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession starts a hosted checkout for the selected plan.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string, plan models.CheckoutPlan) (*models.CheckoutResponse, error) {
	priceID := g.config.PriceFor(plan)
	if priceID == "" {
		return nil, fmt.Errorf("no price configured for plan %q", plan)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.config.SuccessURL),
		CancelURL:  stripe.String(g.config.CancelURL),
		Metadata: map[string]string{
			"user_id":   userID,
			"plan_type": string(plan),
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &models.CheckoutResponse{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// GetSession retrieves a checkout session and its payment state.
func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*BillingSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout session: %w", err)
	}
	return billingSessionFrom(sess), nil
}

// billingSessionFrom maps a Stripe session to the gateway-neutral shape.
func billingSessionFrom(sess *stripe.CheckoutSession) *BillingSession {
	out := &BillingSession{
		ID:   sess.ID,
		Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Plan: models.CheckoutPlan(sess.Metadata["plan_type"]),
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out
}
