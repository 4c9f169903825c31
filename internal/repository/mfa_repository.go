package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homeopshq/homeops-api/internal/domain"
)

// mfaRepository implements MfaRepository interface
type mfaRepository struct {
	q DBTX
}

// UpsertEnrollment stores a pending enrollment, replacing any previous one
// for the same user
func (r *mfaRepository) UpsertEnrollment(ctx context.Context, userID int64, secretEnc string, expiresAt time.Time) error {
	query := `
		INSERT INTO mfa_enrollments (user_id, secret_enc, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET secret_enc = EXCLUDED.secret_enc,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`

	if _, err := r.q.ExecContext(ctx, query, userID, secretEnc, expiresAt, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert mfa enrollment: %w", err)
	}

	return nil
}

// GetEnrollment retrieves the pending enrollment for a user
func (r *mfaRepository) GetEnrollment(ctx context.Context, userID int64) (*domain.MfaEnrollment, error) {
	query := `
		SELECT user_id, secret_enc, expires_at, created_at
		FROM mfa_enrollments
		WHERE user_id = $1
	`

	enrollment := &domain.MfaEnrollment{}
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&enrollment.UserID,
		&enrollment.SecretEnc,
		&enrollment.ExpiresAt,
		&enrollment.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("mfa enrollment for user %d not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get mfa enrollment: %w", err)
	}

	return enrollment, nil
}

// DeleteEnrollment removes the pending enrollment for a user
func (r *mfaRepository) DeleteEnrollment(ctx context.Context, userID int64) error {
	query := `DELETE FROM mfa_enrollments WHERE user_id = $1`

	if _, err := r.q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete mfa enrollment: %w", err)
	}

	return nil
}

// DeleteExpiredEnrollments sweeps timed-out enrollments
func (r *mfaRepository) DeleteExpiredEnrollments(ctx context.Context) (int64, error) {
	query := `DELETE FROM mfa_enrollments WHERE expires_at < $1`

	result, err := r.q.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired enrollments: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// InsertBackupCodes stores a batch of hashed backup codes
func (r *mfaRepository) InsertBackupCodes(ctx context.Context, userID int64, codeHashes []string) error {
	query := `INSERT INTO mfa_backup_codes (user_id, code_hash) VALUES ($1, $2)`

	for _, hash := range codeHashes {
		if _, err := r.q.ExecContext(ctx, query, userID, hash); err != nil {
			return fmt.Errorf("failed to insert backup code: %w", err)
		}
	}

	return nil
}

// DeleteBackupCodes removes all backup codes of a user
func (r *mfaRepository) DeleteBackupCodes(ctx context.Context, userID int64) error {
	query := `DELETE FROM mfa_backup_codes WHERE user_id = $1`

	if _, err := r.q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}

	return nil
}

// ConsumeBackupCode atomically marks a backup code as used. It returns false
// when the code does not exist or was already consumed, which makes replay a
// no-op.
func (r *mfaRepository) ConsumeBackupCode(ctx context.Context, userID int64, codeHash string) (bool, error) {
	query := `
		UPDATE mfa_backup_codes
		SET used_at = $3
		WHERE user_id = $1 AND code_hash = $2 AND used_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, userID, codeHash, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// CountRemainingBackupCodes counts unused backup codes for a user
func (r *mfaRepository) CountRemainingBackupCodes(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM mfa_backup_codes WHERE user_id = $1 AND used_at IS NULL`

	var count int
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count backup codes: %w", err)
	}

	return count, nil
}
