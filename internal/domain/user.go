package domain

import "time"

// Role is a platform-level user role
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
	RoleHomeowner  Role = "homeowner"
)

// IsPlatformAdmin reports whether the role bypasses tenant membership checks
func (r Role) IsPlatformAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Valid reports whether the role is one of the known platform roles
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleAgent, RoleHomeowner:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	DisplayName  string     `json:"displayName" db:"display_name"`
	Role         Role       `json:"role" db:"role"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	MfaEnabled   bool       `json:"mfaEnabled" db:"mfa_enabled"`
	MfaSecretEnc *string    `json:"-" db:"mfa_secret_enc"`
	Image        *string    `json:"image" db:"image"`
	ContactID    *int64     `json:"contactId" db:"contact_id"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt  *time.Time `json:"lastLoginAt" db:"last_login_at"`
}

// OAuthIdentity links a user to an external identity provider subject
type OAuthIdentity struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"userId" db:"user_id"`
	Provider       string    `json:"provider" db:"provider"` // google
	ProviderUserID string    `json:"providerUserId" db:"provider_user_id"`
	Email          *string   `json:"email" db:"email"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// MfaEnrollment is a pending MFA enrollment awaiting TOTP confirmation.
// The secret is stored AES-GCM encrypted, never in the clear.
type MfaEnrollment struct {
	UserID    int64     `json:"userId" db:"user_id"`
	SecretEnc string    `json:"-" db:"secret_enc"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// MfaBackupCode is a single-use replacement for a TOTP code, stored hashed
type MfaBackupCode struct {
	UserID   int64      `json:"userId" db:"user_id"`
	CodeHash string     `json:"-" db:"code_hash"`
	UsedAt   *time.Time `json:"usedAt" db:"used_at"`
}
