package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageEvent records the cost of one metered AI call, attributed to an account
type UsageEvent struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	AccountID        int64           `json:"accountId" db:"account_id"`
	UserID           int64           `json:"userId" db:"user_id"`
	Category         string          `json:"category" db:"category"`
	Model            string          `json:"model" db:"model"`
	PromptTokens     int64           `json:"promptTokens" db:"prompt_tokens"`
	CompletionTokens int64           `json:"completionTokens" db:"completion_tokens"`
	TotalCost        decimal.Decimal `json:"totalCost" db:"total_cost"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
}

// BudgetStatus is the result of a monthly budget check for an account
type BudgetStatus struct {
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Cap       decimal.Decimal `json:"cap"`
	Allowed   bool            `json:"allowed"`
}
