package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// defaultProducts is the catalog seeded at startup. Upserts keep the seed
// idempotent across restarts.
var defaultProducts = []domain.SubscriptionProduct{
	{
		Name:            "basic",
		TargetRole:      domain.RoleHomeowner,
		Price:           decimal.Zero,
		BillingInterval: "month",
		Limits:          domain.SubscriptionLimits{MaxProperties: 1, MaxContacts: 10, MaxViewers: 2, MaxTeamMembers: 1},
		IsActive:        true,
	},
	{
		Name:            "pro",
		TargetRole:      domain.RoleHomeowner,
		Price:           decimal.RequireFromString("9.99"),
		BillingInterval: "month",
		Limits:          domain.SubscriptionLimits{MaxProperties: 5, MaxContacts: 100, MaxViewers: 10, MaxTeamMembers: 5},
		IsActive:        true,
	},
	{
		Name:            "agent",
		TargetRole:      domain.RoleAgent,
		Price:           decimal.RequireFromString("29.99"),
		BillingInterval: "month",
		Limits:          domain.SubscriptionLimits{MaxProperties: 100, MaxContacts: 1000, MaxViewers: 50, MaxTeamMembers: 20},
		IsActive:        true,
	},
}

// Bootstrap seeds the subscription product catalog
func Bootstrap(ctx context.Context, repos *repository.Repositories, logger *zap.Logger) error {
	for i := range defaultProducts {
		product := defaultProducts[i]
		if err := repos.Subscription.UpsertProduct(ctx, &product); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", product.Name, err)
		}
	}
	logger.Info("subscription products seeded", zap.Int("count", len(defaultProducts)))
	return nil
}
