// Package dto defines the JSON shapes of the HTTP edge. The API speaks
// camelCase; translation to internal types happens in the handler layer.
package dto

// RegisterRequest represents a self-registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the password step of a login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// MfaVerifyRequest carries the second factor; the MFA ticket travels in the
// Authorization header
type MfaVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// MfaConfirmRequest confirms a pending enrollment with a live TOTP code
type MfaConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// MfaDisableRequest carries one proof: a TOTP/backup code or the password
type MfaDisableRequest struct {
	CodeOrBackupCode string `json:"codeOrBackupCode"`
	Password         string `json:"password"`
}

// MfaRegenerateRequest replaces all backup codes after a TOTP proof
type MfaRegenerateRequest struct {
	Code string `json:"code" binding:"required"`
}

// ExchangeRequest redeems a one-time OAuth login code
type ExchangeRequest struct {
	Code string `json:"code" binding:"required"`
}

// AccountInvitationRequest invites an email address into an account
type AccountInvitationRequest struct {
	InviteeEmail string `json:"inviteeEmail" binding:"required"`
	Role         string `json:"role" binding:"required"`
	AccountID    int64  `json:"accountId" binding:"required"`
}

// PropertyInvitationRequest invites an email address onto a property
type PropertyInvitationRequest struct {
	InviteeEmail string `json:"inviteeEmail" binding:"required"`
	Role         string `json:"role" binding:"required"`
	PropertyID   int64  `json:"propertyId" binding:"required"`
}

// InvitationAcceptRequest redeems an invitation token. Password and name are
// required when the invitee has no user yet.
type InvitationAcceptRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// PredictPropertyDetailsRequest asks for AI-derived property facts
type PredictPropertyDetailsRequest struct {
	Address string `json:"address" binding:"required"`
}

// BroadcastRecipientsRequest resolves a broadcast audience
type BroadcastRecipientsRequest struct {
	Mode string  `json:"mode" binding:"required"`
	IDs  []int64 `json:"ids"`
}

// UpdateProfileRequest is a guarded partial update; role and email cannot
// change through it
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Image       *string `json:"image"`
}
