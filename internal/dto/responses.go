package dto

import (
	"time"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/service"
)

// TokenPairResponse carries a freshly issued credential pair. The refresh
// token appears here and nowhere else.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// NewTokenPairResponse maps a service token pair to the wire shape
func NewTokenPairResponse(pair *service.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}

// MfaTicketResponse is returned from the password step when MFA is enabled
type MfaTicketResponse struct {
	MfaTicket string `json:"mfaTicket"`
}

// AccessTokenResponse is returned from a refresh
type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// OkResponse acknowledges an operation with no payload
type OkResponse struct {
	OK bool `json:"ok"`
}

// SuccessResponse acknowledges a state change
type SuccessResponse struct {
	Success bool `json:"success"`
}

// UserResponse is the stable public projection of a user
type UserResponse struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	MfaEnabled  bool       `json:"mfaEnabled"`
	Image       *string    `json:"image,omitempty"`
	ContactID   *int64     `json:"contactId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// NewUserResponse maps a domain user to the wire shape
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		MfaEnabled:  user.MfaEnabled,
		Image:       user.Image,
		ContactID:   user.ContactID,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// AuthResponse pairs the user with their tokens after register/login
type AuthResponse struct {
	User   UserResponse      `json:"user"`
	Tokens TokenPairResponse `json:"tokens"`
}

// OAuthBeginResponse carries the provider authorization URL
type OAuthBeginResponse struct {
	URL string `json:"url"`
}

// MfaSetupResponse starts an authenticator enrollment
type MfaSetupResponse struct {
	OtpauthURL    string `json:"otpauthUrl"`
	QRCodeDataURL string `json:"qrCodeDataUrl,omitempty"`
	ManualCode    string `json:"manualCode"`
}

// BackupCodesResponse shows backup codes, once
type BackupCodesResponse struct {
	BackupCodes []string `json:"backupCodes"`
}

// MfaStatusResponse reports second-factor state
type MfaStatusResponse struct {
	MfaEnabled           bool `json:"mfaEnabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}

// InvitationResponse pairs an invitation with its raw token, once
type InvitationResponse struct {
	Invitation *domain.Invitation `json:"invitation"`
	Token      string             `json:"token"`
}

// UsageResponse reports budget state for AI endpoints
type UsageResponse struct {
	Allowed   bool    `json:"allowed"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Cap       float64 `json:"cap"`
}

// NewUsageResponse maps a budget status to the wire shape
func NewUsageResponse(status *domain.BudgetStatus) UsageResponse {
	return UsageResponse{
		Allowed:   status.Allowed,
		Spent:     status.Spent.InexactFloat64(),
		Remaining: status.Remaining.InexactFloat64(),
		Cap:       status.Cap.InexactFloat64(),
	}
}

// PredictUsageInfo is the per-call accounting attached to predictions
type PredictUsageInfo struct {
	Model            string `json:"model"`
	PromptTokens     int64  `json:"promptTokens"`
	CompletionTokens int64  `json:"completionTokens"`
	Cost             string `json:"cost"`
}

// PredictResponse carries a prediction result plus its accounting
type PredictResponse struct {
	Result string           `json:"result"`
	Usage  PredictUsageInfo `json:"usage"`
}

// ContactResponse is the public projection of a contact
type ContactResponse struct {
	ID        int64   `json:"id"`
	AccountID int64   `json:"accountId"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
}

// RecipientsResponse is a resolved broadcast audience
type RecipientsResponse struct {
	Contacts []ContactResponse `json:"contacts"`
	Users    []UserResponse    `json:"users"`
	Emails   []string          `json:"emails"`
	Count    int               `json:"count"`
}

// NewRecipientsResponse maps a recipient set to the wire shape
func NewRecipientsResponse(set *service.RecipientSet) RecipientsResponse {
	resp := RecipientsResponse{
		Contacts: make([]ContactResponse, 0, len(set.Contacts)),
		Users:    make([]UserResponse, 0, len(set.Users)),
		Emails:   set.Emails,
		Count:    set.Count,
	}
	for _, c := range set.Contacts {
		resp.Contacts = append(resp.Contacts, ContactResponse{
			ID: c.ID, AccountID: c.AccountID, Name: c.Name, Email: c.Email, Phone: c.Phone,
		})
	}
	for _, u := range set.Users {
		resp.Users = append(resp.Users, NewUserResponse(u))
	}
	return resp
}

// EstimateResponse is the audience size only
type EstimateResponse struct {
	Count int `json:"count"`
}

// AccountResponse is the public projection of an account
type AccountResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	OwnerUserID int64     `json:"ownerUserId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAccountResponse maps a domain account to the wire shape
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          account.ID,
		Name:        account.Name,
		URL:         account.URL,
		OwnerUserID: account.OwnerUserID,
		CreatedAt:   account.CreatedAt,
	}
}

// PropertyResponse is the public projection of a property; the internal
// integer id stays internal
type PropertyResponse struct {
	PropertyUID string `json:"propertyUid"`
	AccountID   int64  `json:"accountId"`
	PassportID  string `json:"passportId"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
}

// NewPropertyResponse maps a domain property to the wire shape
func NewPropertyResponse(p *domain.Property) PropertyResponse {
	return PropertyResponse{
		PropertyUID: p.PropertyUID,
		AccountID:   p.AccountID,
		PassportID:  p.PassportID,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		PostalCode:  p.PostalCode,
	}
}
