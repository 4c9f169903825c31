package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the billing state of an account subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// SubscriptionLimits bounds what an account on a given product may create
type SubscriptionLimits struct {
	MaxProperties  int `json:"maxProperties"`
	MaxContacts    int `json:"maxContacts"`
	MaxViewers     int `json:"maxViewers"`
	MaxTeamMembers int `json:"maxTeamMembers"`
}

// SubscriptionProduct is a purchasable plan
type SubscriptionProduct struct {
	ID              int64              `json:"id" db:"id"`
	Name            string             `json:"name" db:"name"`
	TargetRole      Role               `json:"targetRole" db:"target_role"`
	Price           decimal.Decimal    `json:"price" db:"price"`
	BillingInterval string             `json:"billingInterval" db:"billing_interval"`
	Limits          SubscriptionLimits `json:"limits"`
	IsActive        bool               `json:"isActive" db:"is_active"`
}

// AccountSubscription links an account to a product
type AccountSubscription struct {
	ID                 int64              `json:"id" db:"id"`
	AccountID          int64              `json:"accountId" db:"account_id"`
	ProductID          int64              `json:"productId" db:"product_id"`
	Status             SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodStart time.Time          `json:"currentPeriodStart" db:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"currentPeriodEnd" db:"current_period_end"`
	CreatedAt          time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time          `json:"updatedAt" db:"updated_at"`
}
