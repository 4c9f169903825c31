package domain

import "time"

// AccountRole is a role within an account (tenant workspace)
type AccountRole string

const (
	AccountRoleOwner  AccountRole = "owner"
	AccountRoleMember AccountRole = "member"
)

// PropertyRole is a role on a single property
type PropertyRole string

const (
	PropertyRoleOwner  PropertyRole = "owner"
	PropertyRoleEditor PropertyRole = "editor"
	PropertyRoleViewer PropertyRole = "viewer"
	PropertyRoleAgent  PropertyRole = "agent"
)

// CanWrite reports whether the property role may mutate property sub-resources.
// Property-level agents get write access but no tenant bypass.
func (r PropertyRole) CanWrite() bool {
	return r == PropertyRoleOwner || r == PropertyRoleEditor || r == PropertyRoleAgent
}

// Account is a tenant workspace; it owns properties and has members
type Account struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	URL         string    `json:"url" db:"url"` // unique slug derived from name
	OwnerUserID int64     `json:"ownerUserId" db:"owner_user_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// AccountMember links a user to an account with an account role
type AccountMember struct {
	AccountID int64       `json:"accountId" db:"account_id"`
	UserID    int64       `json:"userId" db:"user_id"`
	Role      AccountRole `json:"role" db:"role"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// Property is a real-estate unit owned by exactly one account.
// PropertyUID is the public 26-character lexicographic identifier; ID is the
// internal integer key and never leaves the service in public payloads.
type Property struct {
	ID          int64     `json:"id" db:"id"`
	PropertyUID string    `json:"propertyUid" db:"property_uid"`
	AccountID   int64     `json:"accountId" db:"account_id"`
	PassportID  string    `json:"passportId" db:"passport_id"`
	Address     string    `json:"address" db:"address"`
	City        string    `json:"city" db:"city"`
	State       string    `json:"state" db:"state"`
	PostalCode  string    `json:"postalCode" db:"postal_code"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// PropertyMember links a user to a property with a property role
type PropertyMember struct {
	PropertyID int64        `json:"propertyId" db:"property_id"`
	UserID     int64        `json:"userId" db:"user_id"`
	Role       PropertyRole `json:"role" db:"role"`
	CreatedAt  time.Time    `json:"createdAt" db:"created_at"`
}

// PropertySystem is a tracked system of a property (HVAC, roof, plumbing, ...)
type PropertySystem struct {
	ID         int64     `json:"id" db:"id"`
	PropertyID int64     `json:"propertyId" db:"property_id"`
	Kind       string    `json:"kind" db:"kind"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Contact is an address-book entry owned by an account
type Contact struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"accountId" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     *string   `json:"phone" db:"phone"`
	UserID    *int64    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
