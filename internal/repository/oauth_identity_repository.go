package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/lib/pq"
)

// oauthIdentityRepository implements OAuthIdentityRepository interface
type oauthIdentityRepository struct {
	q DBTX
}

// Create links a provider subject to a user
func (r *oauthIdentityRepository) Create(ctx context.Context, identity *domain.OAuthIdentity) error {
	query := `
		INSERT INTO oauth_identities (user_id, provider, provider_user_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}

	err := r.q.QueryRowContext(ctx, query,
		identity.UserID,
		identity.Provider,
		identity.ProviderUserID,
		identity.Email,
		identity.CreatedAt,
	).Scan(&identity.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("oauth identity already linked: %w", ErrDuplicateOAuthIdentity)
			}
		}
		return fmt.Errorf("failed to create oauth identity: %w", err)
	}

	return nil
}

// GetByProvider retrieves a linked identity by provider and subject
func (r *oauthIdentityRepository) GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.OAuthIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_user_id, email, created_at
		FROM oauth_identities
		WHERE provider = $1 AND provider_user_id = $2
	`

	identity := &domain.OAuthIdentity{}
	var email sql.NullString

	err := r.q.QueryRowContext(ctx, query, provider, providerUserID).Scan(
		&identity.ID,
		&identity.UserID,
		&identity.Provider,
		&identity.ProviderUserID,
		&email,
		&identity.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("oauth identity not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get oauth identity: %w", err)
	}

	if email.Valid {
		identity.Email = &email.String
	}

	return identity, nil
}

// GetByUserID retrieves all linked identities of a user
func (r *oauthIdentityRepository) GetByUserID(ctx context.Context, userID int64) ([]*domain.OAuthIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_user_id, email, created_at
		FROM oauth_identities
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth identities by user id: %w", err)
	}
	defer rows.Close()

	var identities []*domain.OAuthIdentity
	for rows.Next() {
		identity := &domain.OAuthIdentity{}
		var email sql.NullString

		err := rows.Scan(
			&identity.ID,
			&identity.UserID,
			&identity.Provider,
			&identity.ProviderUserID,
			&email,
			&identity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan oauth identity: %w", err)
		}

		if email.Valid {
			identity.Email = &email.String
		}

		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate oauth identities: %w", err)
	}

	return identities, nil
}
