package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/lib/pq"
)

// invitationRepository implements InvitationRepository interface
type invitationRepository struct {
	q DBTX
}

const invitationColumns = `id, type, inviter_user_id, invitee_email, account_id, property_id, intended_role, token_hash, status, expires_at, accepted_at, accepted_by_user_id, created_at`

// Create stores a new invitation. Only the token hash is persisted.
func (r *invitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	query := `
		INSERT INTO invitations (id, type, inviter_user_id, invitee_email, account_id, property_id, intended_role, token_hash, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, query,
		invitation.ID,
		invitation.Type,
		invitation.InviterUserID,
		invitation.InviteeEmail,
		invitation.AccountID,
		invitation.PropertyID,
		invitation.IntendedRole,
		invitation.TokenHash,
		invitation.Status,
		invitation.ExpiresAt,
		invitation.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on token_hash
				return fmt.Errorf("invitation token collision: %w", ErrDuplicateToken)
			}
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetByID retrieves an invitation by ID
func (r *invitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE id = $1`, invitationColumns)

	invitation, err := scanInvitation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invitation with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invitation by id: %w", err)
	}

	return invitation, nil
}

// GetByTokenHash retrieves an invitation by the hash of its raw token
func (r *invitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE token_hash = $1`, invitationColumns)

	invitation, err := scanInvitation(r.q.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invitation not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invitation by token hash: %w", err)
	}

	return invitation, nil
}

// UpdateStatus transitions an invitation between lifecycle states. The
// transition only applies when the row is still in the expected state.
func (r *invitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InvitationStatus) error {
	query := `UPDATE invitations SET status = $3 WHERE id = $1 AND status = $2`

	result, err := r.q.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("invitation %s not in status %s: %w", id, from, ErrNotFound)
	}

	return nil
}

// MarkAccepted transitions a pending invitation to accepted, recording who
// accepted and when
func (r *invitationRepository) MarkAccepted(ctx context.Context, id uuid.UUID, userID int64, at time.Time) error {
	query := `
		UPDATE invitations
		SET status = $2, accepted_at = $3, accepted_by_user_id = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.q.ExecContext(ctx, query, id, domain.InvitationStatusAccepted, at, userID, domain.InvitationStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("invitation %s not pending: %w", id, ErrNotFound)
	}

	return nil
}

// ExpirePending flips timed-out pending invitations to expired and returns
// the number transitioned
func (r *invitationRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE invitations SET status = $1 WHERE status = $2 AND expires_at <= $3`

	result, err := r.q.ExecContext(ctx, query, domain.InvitationStatusExpired, domain.InvitationStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	invitation := &domain.Invitation{}
	var accountID, propertyID, acceptedBy sql.NullInt64
	var acceptedAt sql.NullTime

	err := row.Scan(
		&invitation.ID,
		&invitation.Type,
		&invitation.InviterUserID,
		&invitation.InviteeEmail,
		&accountID,
		&propertyID,
		&invitation.IntendedRole,
		&invitation.TokenHash,
		&invitation.Status,
		&invitation.ExpiresAt,
		&acceptedAt,
		&acceptedBy,
		&invitation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if accountID.Valid {
		invitation.AccountID = &accountID.Int64
	}
	if propertyID.Valid {
		invitation.PropertyID = &propertyID.Int64
	}
	if acceptedAt.Valid {
		invitation.AcceptedAt = &acceptedAt.Time
	}
	if acceptedBy.Valid {
		invitation.AcceptedByUserID = &acceptedBy.Int64
	}

	return invitation, nil
}
