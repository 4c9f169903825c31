package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/shopspring/decimal"
)

// usageRepository implements UsageRepository interface
type usageRepository struct {
	q DBTX
}

// Insert appends a usage event
func (r *usageRepository) Insert(ctx context.Context, event *domain.UsageEvent) error {
	query := `
		INSERT INTO usage_events (id, account_id, user_id, category, model, prompt_tokens, completion_tokens, total_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.AccountID,
		event.UserID,
		event.Category,
		event.Model,
		event.PromptTokens,
		event.CompletionTokens,
		event.TotalCost.String(),
		event.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}

	return nil
}

// MonthlySpend sums the cost of all events for an account since the start of
// the current calendar month
func (r *usageRepository) MonthlySpend(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(total_cost), 0)
		FROM usage_events
		WHERE account_id = $1 AND created_at >= date_trunc('month', now())
	`

	var spent string
	if err := r.q.QueryRowContext(ctx, query, accountID).Scan(&spent); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum monthly spend: %w", err)
	}

	total, err := decimal.NewFromString(spent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse monthly spend: %w", err)
	}

	return total, nil
}
