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

// accountRepository implements AccountRepository interface
type accountRepository struct {
	q DBTX
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (name, url, owner_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	err := r.q.QueryRowContext(ctx, query,
		account.Name,
		account.URL,
		account.OwnerUserID,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on url slug
				return fmt.Errorf("account with url %s already exists: %w", account.URL, ErrDuplicateAccountURL)
			}
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT id, name, url, owner_user_id, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	account := &domain.Account{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.URL,
		&account.OwnerUserID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// Delete removes an account; memberships, properties and subscriptions
// cascade at the schema level
func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account with id %d not found: %w", id, ErrNotFound)
	}

	return nil
}

// IsMember reports whether a user belongs to an account
func (r *accountRepository) IsMember(ctx context.Context, userID, accountID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM account_members WHERE user_id = $1 AND account_id = $2)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, userID, accountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account membership: %w", err)
	}

	return exists, nil
}

// AddMember links a user to an account. The first member of an account is
// always stored as owner regardless of the requested role.
func (r *accountRepository) AddMember(ctx context.Context, accountID, userID int64, role domain.AccountRole) error {
	var memberCount int
	countQuery := `SELECT COUNT(*) FROM account_members WHERE account_id = $1`
	if err := r.q.QueryRowContext(ctx, countQuery, accountID).Scan(&memberCount); err != nil {
		return fmt.Errorf("failed to count account members: %w", err)
	}

	if memberCount == 0 {
		role = domain.AccountRoleOwner
	}

	query := `
		INSERT INTO account_members (account_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.q.ExecContext(ctx, query, accountID, userID, role, time.Now()); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user %d already in account %d: %w", userID, accountID, ErrDuplicateMember)
			}
		}
		return fmt.Errorf("failed to add account member: %w", err)
	}

	return nil
}

// RemoveMember unlinks a user from an account. Removing the only owner is a
// precondition failure; the account must keep at least one owner while live.
func (r *accountRepository) RemoveMember(ctx context.Context, accountID, userID int64) error {
	roleQuery := `SELECT role FROM account_members WHERE account_id = $1 AND user_id = $2`

	var role domain.AccountRole
	if err := r.q.QueryRowContext(ctx, roleQuery, accountID, userID).Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("membership not found: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to get member role: %w", err)
	}

	if role == domain.AccountRoleOwner {
		ownersQuery := `SELECT COUNT(*) FROM account_members WHERE account_id = $1 AND role = $2`

		var owners int
		if err := r.q.QueryRowContext(ctx, ownersQuery, accountID, domain.AccountRoleOwner).Scan(&owners); err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}

		if owners <= 1 {
			return ErrLastOwner
		}
	}

	query := `DELETE FROM account_members WHERE account_id = $1 AND user_id = $2`
	if _, err := r.q.ExecContext(ctx, query, accountID, userID); err != nil {
		return fmt.Errorf("failed to remove account member: %w", err)
	}

	return nil
}

// Members lists the memberships of an account
func (r *accountRepository) Members(ctx context.Context, accountID int64) ([]*domain.AccountMember, error) {
	query := `
		SELECT account_id, user_id, role, created_at
		FROM account_members
		WHERE account_id = $1
		ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account members: %w", err)
	}
	defer rows.Close()

	var members []*domain.AccountMember
	for rows.Next() {
		member := &domain.AccountMember{}
		if err := rows.Scan(&member.AccountID, &member.UserID, &member.Role, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account members: %w", err)
	}

	return members, nil
}

// AccountsForUser lists the accounts a user belongs to
func (r *accountRepository) AccountsForUser(ctx context.Context, userID int64) ([]*domain.Account, error) {
	query := `
		SELECT a.id, a.name, a.url, a.owner_user_id, a.created_at, a.updated_at
		FROM accounts a
		JOIN account_members m ON m.account_id = a.id
		WHERE m.user_id = $1
		ORDER BY a.created_at
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for user: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account := &domain.Account{}
		err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.URL,
			&account.OwnerUserID,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// AccountIDsForUser lists just the account ids a user belongs to
func (r *accountRepository) AccountIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT account_id FROM account_members WHERE user_id = $1`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account ids for user: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account ids: %w", err)
	}

	return ids, nil
}

// OwnsAnyAccount reports whether the user holds an owner membership anywhere
func (r *accountRepository) OwnsAnyAccount(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM account_members WHERE user_id = $1 AND role = $2)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, userID, domain.AccountRoleOwner).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account ownership: %w", err)
	}

	return exists, nil
}

// ShareAccount reports whether two users belong to at least one common account
func (r *accountRepository) ShareAccount(ctx context.Context, userA, userB int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM account_members a
			JOIN account_members b ON a.account_id = b.account_id
			WHERE a.user_id = $1 AND b.user_id = $2
		)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check shared account: %w", err)
	}

	return exists, nil
}
