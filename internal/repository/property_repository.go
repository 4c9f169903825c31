package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/oklog/ulid/v2"
)

// propertyRepository implements PropertyRepository interface
type propertyRepository struct {
	q DBTX
}

// Create creates a new property, minting its public 26-char id
func (r *propertyRepository) Create(ctx context.Context, property *domain.Property) error {
	if property.PropertyUID == "" {
		property.PropertyUID = ulid.Make().String()
	}

	query := `
		INSERT INTO properties (property_uid, account_id, passport_id, address, city, state, postal_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	if property.CreatedAt.IsZero() {
		property.CreatedAt = now
	}
	if property.UpdatedAt.IsZero() {
		property.UpdatedAt = now
	}

	err := r.q.QueryRowContext(ctx, query,
		property.PropertyUID,
		property.AccountID,
		property.PassportID,
		property.Address,
		property.City,
		property.State,
		property.PostalCode,
		property.CreatedAt,
		property.UpdatedAt,
	).Scan(&property.ID)

	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by internal ID
func (r *propertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	query := `
		SELECT id, property_uid, account_id, passport_id, address, city, state, postal_code, created_at, updated_at
		FROM properties
		WHERE id = $1
	`

	property := &domain.Property{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&property.ID,
		&property.PropertyUID,
		&property.AccountID,
		&property.PassportID,
		&property.Address,
		&property.City,
		&property.State,
		&property.PostalCode,
		&property.CreatedAt,
		&property.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("property with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property by id: %w", err)
	}

	return property, nil
}

// IDForUID resolves the public 26-char id to the internal integer id.
// Lookup is case-insensitive; the uid is stored uppercase.
func (r *propertyRepository) IDForUID(ctx context.Context, uid string) (int64, error) {
	query := `SELECT id FROM properties WHERE property_uid = $1`

	var id int64
	err := r.q.QueryRowContext(ctx, query, strings.ToUpper(uid)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("property with uid %s not found: %w", uid, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to resolve property uid: %w", err)
	}

	return id, nil
}

// IsMember reports whether a user is on a property
func (r *propertyRepository) IsMember(ctx context.Context, userID, propertyID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM property_members WHERE user_id = $1 AND property_id = $2)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, userID, propertyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check property membership: %w", err)
	}

	return exists, nil
}

// MemberRole returns the property role of a user
func (r *propertyRepository) MemberRole(ctx context.Context, userID, propertyID int64) (domain.PropertyRole, error) {
	query := `SELECT role FROM property_members WHERE user_id = $1 AND property_id = $2`

	var role domain.PropertyRole
	err := r.q.QueryRowContext(ctx, query, userID, propertyID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("property membership not found: %w", ErrNotFound)
		}
		return "", fmt.Errorf("failed to get property member role: %w", err)
	}

	return role, nil
}

// AddMember links a user to a property. Re-adding an existing member keeps
// the original role.
func (r *propertyRepository) AddMember(ctx context.Context, propertyID, userID int64, role domain.PropertyRole) error {
	query := `
		INSERT INTO property_members (property_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_id, user_id) DO NOTHING
	`

	if _, err := r.q.ExecContext(ctx, query, propertyID, userID, role, time.Now()); err != nil {
		return fmt.Errorf("failed to add property member: %w", err)
	}

	return nil
}

// Systems lists the tracked systems of a property
func (r *propertyRepository) Systems(ctx context.Context, propertyID int64) ([]*domain.PropertySystem, error) {
	query := `
		SELECT id, property_id, kind, name, created_at
		FROM property_systems
		WHERE property_id = $1
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list property systems: %w", err)
	}
	defer rows.Close()

	var systems []*domain.PropertySystem
	for rows.Next() {
		system := &domain.PropertySystem{}
		if err := rows.Scan(&system.ID, &system.PropertyID, &system.Kind, &system.Name, &system.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan property system: %w", err)
		}
		systems = append(systems, system)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property systems: %w", err)
	}

	return systems, nil
}
