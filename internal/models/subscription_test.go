package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionPremium(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"basic plan", Subscription{PlanType: PlanBasic, Status: SubscriptionActive}, false},
		{"active premium no expiry", Subscription{PlanType: PlanPremium, Status: SubscriptionActive}, true},
		{"active premium unexpired", Subscription{PlanType: PlanPremium, Status: SubscriptionActive, ExpiresAt: &future}, true},
		{"active premium expired", Subscription{PlanType: PlanPremium, Status: SubscriptionActive, ExpiresAt: &past}, false},
		{"cancelled premium", Subscription{PlanType: PlanPremium, Status: SubscriptionCancelled, ExpiresAt: &future}, false},
		{"inactive premium", Subscription{PlanType: PlanPremium, Status: SubscriptionInactive, ExpiresAt: &future}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.Premium(now))
		})
	}
}

func TestSubscriptionExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Subscription{PlanType: PlanBasic}).Expired(now))
	assert.False(t, (&Subscription{PlanType: PlanPremium}).Expired(now))
	assert.False(t, (&Subscription{PlanType: PlanPremium, ExpiresAt: &future}).Expired(now))
	assert.True(t, (&Subscription{PlanType: PlanPremium, ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Subscription{PlanType: PlanPremium, ExpiresAt: &now}).Expired(now))
}

func TestCheckoutPlanDuration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, CheckoutPlanOneDay.Duration())
	assert.Equal(t, 7*24*time.Hour, CheckoutPlanWeek.Duration())
	assert.Equal(t, 30*24*time.Hour, CheckoutPlanMonth.Duration())
	assert.Equal(t, time.Duration(0), CheckoutPlan("2_weeks").Duration())
}

func TestValidCheckoutPlan(t *testing.T) {
	assert.True(t, ValidCheckoutPlan(CheckoutPlanOneDay))
	assert.True(t, ValidCheckoutPlan(CheckoutPlanWeek))
	assert.True(t, ValidCheckoutPlan(CheckoutPlanMonth))
	assert.False(t, ValidCheckoutPlan(CheckoutPlan("premium")))
	assert.False(t, ValidCheckoutPlan(CheckoutPlan("")))
}

func TestSubscriptionView(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	sub := Subscription{ID: "s1", PlanType: PlanPremium, Status: SubscriptionActive, ExpiresAt: &future}

	view := sub.View(now)
	assert.Equal(t, "s1", view.ID)
	assert.True(t, view.Premium)
	assert.Equal(t, &future, view.ExpiresAt)
}
