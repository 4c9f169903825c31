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

// contactRepository implements ContactRepository interface
type contactRepository struct {
	q DBTX
}

const contactColumns = `id, account_id, name, email, phone, user_id, created_at`

// Create creates a new contact on an account
func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (account_id, name, email, phone, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}

	err := r.q.QueryRowContext(ctx, query,
		contact.AccountID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.UserID,
		contact.CreatedAt,
	).Scan(&contact.ID)

	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

// GetByAccountAndEmail retrieves an account's contact by email
func (r *contactRepository) GetByAccountAndEmail(ctx context.Context, accountID int64, email string) (*domain.Contact, error) {
	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE account_id = $1 AND lower(email) = lower($2)`, contactColumns)

	contact, err := scanContact(r.q.QueryRowContext(ctx, query, accountID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// ListByIDs retrieves contacts by a set of ids; unknown ids are skipped
func (r *contactRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE id = ANY($1)`, contactColumns)

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts by ids: %w", err)
	}
	defer rows.Close()

	return collectContacts(rows)
}

// ListByAccountIDs retrieves all contacts on the given accounts
func (r *contactRepository) ListByAccountIDs(ctx context.Context, accountIDs []int64) ([]*domain.Contact, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE account_id = ANY($1)`, contactColumns)

	rows, err := r.q.QueryContext(ctx, query, pq.Array(accountIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts by account ids: %w", err)
	}
	defer rows.Close()

	return collectContacts(rows)
}

// ListAll retrieves every contact; platform-admin broadcast scope only
func (r *contactRepository) ListAll(ctx context.Context) ([]*domain.Contact, error) {
	query := fmt.Sprintf(`SELECT %s FROM contacts`, contactColumns)

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	return collectContacts(rows)
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	contact := &domain.Contact{}
	var phone sql.NullString
	var userID sql.NullInt64

	err := row.Scan(
		&contact.ID,
		&contact.AccountID,
		&contact.Name,
		&contact.Email,
		&phone,
		&userID,
		&contact.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		contact.Phone = &phone.String
	}
	if userID.Valid {
		contact.UserID = &userID.Int64
	}

	return contact, nil
}

func collectContacts(rows *sql.Rows) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}
