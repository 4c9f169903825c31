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

// userRepository implements UserRepository interface
type userRepository struct {
	q DBTX
}

const userColumns = `id, email, password_hash, display_name, role, is_active, mfa_enabled, mfa_secret_enc, image, contact_id, created_at, updated_at, last_login_at`

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, display_name, role, is_active, mfa_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	err := r.q.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
		user.IsActive,
		user.MfaEnabled,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1)`, userColumns)

	user, err := scanUser(r.q.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByIDs retrieves users by a set of IDs; unknown ids are skipped
func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = ANY($1)`, userColumns)

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// ListByRole retrieves users with the given platform role
func (r *userRepository) ListByRole(ctx context.Context, role domain.Role, onlyActive bool) ([]*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1`, userColumns)
	if onlyActive {
		query += ` AND is_active`
	}

	rows, err := r.q.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// UpdateProfile updates the mutable profile fields. Role and email are
// intentionally not updatable here.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, displayName, image *string) error {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    image = COALESCE($3, image),
		    updated_at = $4
		WHERE id = $1
	`

	return r.execOne(ctx, query, id, displayName, image, time.Now())
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, time.Now())
}

// SetPassword replaces the password hash
func (r *userRepository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, passwordHash, time.Now())
}

// Activate sets the password hash and activates the user in one statement
func (r *userRepository) Activate(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, is_active = true, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, passwordHash, time.Now())
}

// SetMfa sets the MFA state. Enabling stores the encrypted secret; disabling
// clears it.
func (r *userRepository) SetMfa(ctx context.Context, id int64, enabled bool, secretEnc *string) error {
	query := `UPDATE users SET mfa_enabled = $2, mfa_secret_enc = $3, updated_at = $4 WHERE id = $1`
	return r.execOne(ctx, query, id, enabled, secretEnc, time.Now())
}

// SetContactID links the user to its contact record
func (r *userRepository) SetContactID(ctx context.Context, id, contactID int64) error {
	query := `UPDATE users SET contact_id = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, contactID, time.Now())
}

// Delete removes a user. Ownership preconditions are checked by the caller.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *userRepository) execOne(ctx context.Context, query string, id int64, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var mfaSecretEnc, image sql.NullString
	var contactID sql.NullInt64
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.IsActive,
		&user.MfaEnabled,
		&mfaSecretEnc,
		&image,
		&contactID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if mfaSecretEnc.Valid {
		user.MfaSecretEnc = &mfaSecretEnc.String
	}
	if image.Valid {
		user.Image = &image.String
	}
	if contactID.Valid {
		user.ContactID = &contactID.Int64
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}

func collectUsers(rows *sql.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}
