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

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	q DBTX
}

// Create persists the hash of a freshly issued refresh token
func (r *tokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	err := r.q.QueryRowContext(ctx, query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("token with hash already exists: %w", ErrDuplicateToken)
			}
		}
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// FindValid retrieves a refresh token by its hash only if it has not expired
func (r *tokenRepository) FindValid(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > $2
	`

	token := &domain.RefreshToken{}
	err := r.q.QueryRowContext(ctx, query, tokenHash, time.Now()).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token with hash not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token by hash: %w", err)
	}

	return token, nil
}

// DeleteByTokenHash revokes a single refresh token. Deleting an already
// revoked token is not an error; revocation is idempotent at the service
// layer, which treats a missing row as InvalidRefresh.
func (r *tokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = $1`

	result, err := r.q.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete token by hash: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("token with hash not found: %w", ErrNotFound)
	}

	return nil
}

// DeleteAllForUser revokes every refresh token of a user (sign out everywhere)
func (r *tokenRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	if _, err := r.q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete tokens for user: %w", err)
	}

	return nil
}

// DeleteExpired sweeps expired refresh tokens and returns the count removed
func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	result, err := r.q.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
