package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/shopspring/decimal"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// subscriptionRepository implements SubscriptionRepository interface
type subscriptionRepository struct {
	q DBTX
}

// UpsertProduct creates or refreshes a subscription product by name. Used by
// the startup bootstrap so seeding is idempotent.
func (r *subscriptionRepository) UpsertProduct(ctx context.Context, product *domain.SubscriptionProduct) error {
	query := `
		INSERT INTO subscription_products (name, target_role, price, billing_interval, max_properties, max_contacts, max_viewers, max_team_members, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE
		SET target_role = EXCLUDED.target_role,
		    price = EXCLUDED.price,
		    billing_interval = EXCLUDED.billing_interval,
		    max_properties = EXCLUDED.max_properties,
		    max_contacts = EXCLUDED.max_contacts,
		    max_viewers = EXCLUDED.max_viewers,
		    max_team_members = EXCLUDED.max_team_members,
		    is_active = EXCLUDED.is_active
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		product.Name,
		product.TargetRole,
		product.Price.String(),
		product.BillingInterval,
		product.Limits.MaxProperties,
		product.Limits.MaxContacts,
		product.Limits.MaxViewers,
		product.Limits.MaxTeamMembers,
		product.IsActive,
	).Scan(&product.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert subscription product: %w", err)
	}

	return nil
}

// GetProductByName retrieves a product by its unique name
func (r *subscriptionRepository) GetProductByName(ctx context.Context, name string) (*domain.SubscriptionProduct, error) {
	query := `
		SELECT id, name, target_role, price, billing_interval, max_properties, max_contacts, max_viewers, max_team_members, is_active
		FROM subscription_products
		WHERE name = $1
	`

	product := &domain.SubscriptionProduct{}
	var price string

	err := r.q.QueryRowContext(ctx, query, name).Scan(
		&product.ID,
		&product.Name,
		&product.TargetRole,
		&price,
		&product.BillingInterval,
		&product.Limits.MaxProperties,
		&product.Limits.MaxContacts,
		&product.Limits.MaxViewers,
		&product.Limits.MaxTeamMembers,
		&product.IsActive,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription product %s not found: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription product: %w", err)
	}

	product.Price, err = parseDecimal(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product price: %w", err)
	}

	return product, nil
}

// CreateAccountSubscription links an account to a product
func (r *subscriptionRepository) CreateAccountSubscription(ctx context.Context, sub *domain.AccountSubscription) error {
	query := `
		INSERT INTO account_subscriptions (account_id, product_id, status, current_period_start, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}

	err := r.q.QueryRowContext(ctx, query,
		sub.AccountID,
		sub.ProductID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Scan(&sub.ID)

	if err != nil {
		return fmt.Errorf("failed to create account subscription: %w", err)
	}

	return nil
}
