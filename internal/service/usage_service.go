package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// ModelPricing is the per-token price of one model
type ModelPricing struct {
	InputPerToken  decimal.Decimal
	OutputPerToken decimal.Decimal
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// defaultPricing maps model identifiers to per-token prices (USD)
var defaultPricing = map[string]ModelPricing{
	"gpt-4o-mini": {InputPerToken: price("0.00000015"), OutputPerToken: price("0.0000006")},
	"gpt-4o":      {InputPerToken: price("0.0000025"), OutputPerToken: price("0.00001")},
}

// UsageMeter accounts per-account monthly AI spend and gates it against a cap.
// The budget check and the event log are independent queries; a race can admit
// at most one over-budget call, which is accepted.
type UsageMeter struct {
	usage   repository.UsageRepository
	pricing map[string]ModelPricing
	cap     decimal.Decimal
}

// NewUsageMeter creates a usage meter with the default pricing table
func NewUsageMeter(usage repository.UsageRepository, monthlyCap decimal.Decimal) *UsageMeter {
	return &UsageMeter{
		usage:   usage,
		pricing: defaultPricing,
		cap:     monthlyCap,
	}
}

// CostFor computes the cost of one call from the pricing table. Unknown
// models cost zero and are still logged for visibility.
func (m *UsageMeter) CostFor(model string, promptTokens, completionTokens int64) decimal.Decimal {
	pricing, ok := m.pricing[model]
	if !ok {
		return decimal.Zero
	}
	in := pricing.InputPerToken.Mul(decimal.NewFromInt(promptTokens))
	out := pricing.OutputPerToken.Mul(decimal.NewFromInt(completionTokens))
	return in.Add(out)
}

// LogEvent appends one usage event
func (m *UsageMeter) LogEvent(ctx context.Context, event *domain.UsageEvent) error {
	if err := m.usage.Insert(ctx, event); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to log usage event", err)
	}
	return nil
}

// MonthlySpend sums the account's cost since the start of the calendar month
func (m *UsageMeter) MonthlySpend(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	spent, err := m.usage.MonthlySpend(ctx, accountID)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.KindInternal, "failed to read monthly spend", err)
	}
	return spent, nil
}

// CheckBudget reports spend against the cap. Allowed means remaining > 0.
func (m *UsageMeter) CheckBudget(ctx context.Context, accountID int64) (*domain.BudgetStatus, error) {
	spent, err := m.MonthlySpend(ctx, accountID)
	if err != nil {
		return nil, err
	}

	remaining := m.cap.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &domain.BudgetStatus{
		Spent:     spent,
		Remaining: remaining,
		Cap:       m.cap,
		Allowed:   remaining.IsPositive(),
	}, nil
}

// BudgetError builds the BudgetExceeded error with machine-readable fields.
// The fields are numbers so the envelope serializes them unquoted, matching
// the usage endpoint.
func BudgetError(status *domain.BudgetStatus) error {
	return apperr.New(apperr.KindBudgetExceeded, "monthly AI budget exceeded").
		WithField("spent", status.Spent.InexactFloat64()).
		WithField("cap", status.Cap.InexactFloat64())
}
