package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvitationType distinguishes account and property invitations
type InvitationType string

const (
	InvitationTypeAccount  InvitationType = "account"
	InvitationTypeProperty InvitationType = "property"
)

// InvitationStatus represents the lifecycle state of an invitation
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusRevoked  InvitationStatus = "revoked"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// Invitation is a one-time-use token authorizing the bearer to join an account
// or property as a specified role. Only the SHA-256 hash of the token is stored.
type Invitation struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	Type             InvitationType   `json:"type" db:"type"`
	InviterUserID    int64            `json:"inviterUserId" db:"inviter_user_id"`
	InviteeEmail     string           `json:"inviteeEmail" db:"invitee_email"`
	AccountID        *int64           `json:"accountId" db:"account_id"`
	PropertyID       *int64           `json:"propertyId" db:"property_id"`
	IntendedRole     string           `json:"intendedRole" db:"intended_role"`
	TokenHash        string           `json:"-" db:"token_hash"`
	Status           InvitationStatus `json:"status" db:"status"`
	ExpiresAt        time.Time        `json:"expiresAt" db:"expires_at"`
	AcceptedAt       *time.Time       `json:"acceptedAt" db:"accepted_at"`
	AcceptedByUserID *int64           `json:"acceptedByUserId" db:"accepted_by_user_id"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
}

// IsValid reports whether the invitation can still be accepted
func (i *Invitation) IsValid() bool {
	return i.Status == InvitationStatusPending && time.Now().Before(i.ExpiresAt)
}
