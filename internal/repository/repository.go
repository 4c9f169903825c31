package repository

import (
	"context"
	"database/sql"

	"github.com/homeopshq/homeops-api/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	db *database.Postgres

	User          UserRepository
	Token         TokenRepository
	Mfa           MfaRepository
	OAuthIdentity OAuthIdentityRepository
	Account       AccountRepository
	Property      PropertyRepository
	Invitation    InvitationRepository
	Usage         UsageRepository
	Subscription  SubscriptionRepository
	Contact       ContactRepository
}

// NewRepositories creates all repositories bound to the shared connection
func NewRepositories(db *database.Postgres) *Repositories {
	r := newRepositoriesWith(db.DB)
	r.db = db
	return r
}

func newRepositoriesWith(q DBTX) *Repositories {
	return &Repositories{
		User:          &userRepository{q: q},
		Token:         &tokenRepository{q: q},
		Mfa:           &mfaRepository{q: q},
		OAuthIdentity: &oauthIdentityRepository{q: q},
		Account:       &accountRepository{q: q},
		Property:      &propertyRepository{q: q},
		Invitation:    &invitationRepository{q: q},
		Usage:         &usageRepository{q: q},
		Subscription:  &subscriptionRepository{q: q},
		Contact:       &contactRepository{q: q},
	}
}

// WithinTx runs fn with a repository set bound to a single transaction.
// All-or-nothing flows (invitation acceptance, account scaffolding) go
// through here.
func (r *Repositories) WithinTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		return fn(newRepositoriesWith(tx))
	})
}
