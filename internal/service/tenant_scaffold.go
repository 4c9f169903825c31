package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// defaultProductName is the plan new accounts are placed on
const defaultProductName = "basic"

// createTenantScaffold creates the default account for a freshly created
// user: the account itself, an owner membership, and a contact record linked
// back to the user. Runs inside the caller's transaction.
func createTenantScaffold(ctx context.Context, tx *repository.Repositories, user *domain.User) (*domain.Account, error) {
	name := user.DisplayName
	if name == "" {
		name = strings.SplitN(user.Email, "@", 2)[0]
	}

	account := &domain.Account{
		Name:        name,
		URL:         fmt.Sprintf("%s-%d", slugify(name), user.ID),
		OwnerUserID: user.ID,
	}
	if err := tx.Account.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create default account: %w", err)
	}

	if err := tx.Account.AddMember(ctx, account.ID, user.ID, domain.AccountRoleOwner); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	contact := &domain.Contact{
		AccountID: account.ID,
		Name:      name,
		Email:     user.Email,
		UserID:    &user.ID,
	}
	if err := tx.Contact.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact record: %w", err)
	}

	if err := tx.User.SetContactID(ctx, user.ID, contact.ID); err != nil {
		return nil, fmt.Errorf("failed to link contact: %w", err)
	}

	user.ContactID = &contact.ID
	return account, nil
}

// attachDefaultSubscription places an account on the default plan. Non-critical
// data: failures are logged and never abort the caller's flow.
func attachDefaultSubscription(ctx context.Context, subs repository.SubscriptionRepository, accountID int64, logger *zap.Logger) {
	product, err := subs.GetProductByName(ctx, defaultProductName)
	if err != nil {
		logger.Warn("default subscription product missing, skipping",
			zap.Int64("accountId", accountID),
			zap.Error(err))
		return
	}

	now := time.Now()
	sub := &domain.AccountSubscription{
		AccountID:          accountID,
		ProductID:          product.ID,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
	}
	if err := subs.CreateAccountSubscription(ctx, sub); err != nil {
		logger.Warn("failed to attach default subscription",
			zap.Int64("accountId", accountID),
			zap.Error(err))
	}
}

// slugify lowercases a name and collapses everything outside [a-z0-9] to
// single hyphens
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "account"
	}
	return slug
}
