package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// TxRunner runs a function with a repository set bound to one transaction.
// *repository.Repositories satisfies it; tests substitute fakes.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *repository.Repositories) error) error
}

// TokenPair is an issued access + refresh credential pair. The refresh token
// appears raw exactly once, in the response that carries this pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime, seconds
}

// LoginResult is the outcome of the password step. Exactly one of Pair or
// MfaTicket is set: a ticket means the caller still owes a second factor.
type LoginResult struct {
	User      *domain.User
	Pair      *TokenPair
	MfaTicket string
}

// EnrollmentInfo is returned when MFA enrollment begins
type EnrollmentInfo struct {
	OtpauthURL    string
	ManualCode    string
	QRCodeDataURL string
}

// MfaStatus reports a user's second-factor state
type MfaStatus struct {
	Enabled              bool
	BackupCodesRemaining int
}

// AuthService handles registration, password login, token issuance and
// session teardown
type AuthService interface {
	Register(ctx context.Context, displayName, email, password string) (*domain.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	IssueTokens(ctx context.Context, user *domain.User) (*TokenPair, error)
	Refresh(ctx context.Context, refreshTokenRaw string) (string, int, error)
	Logout(ctx context.Context, refreshTokenRaw string, claims *domain.TokenClaims) error
	LogoutAll(ctx context.Context, userID int64) error
	ValidateAccess(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// MfaService handles TOTP enrollment, verification and backup codes
type MfaService interface {
	BeginEnrollment(ctx context.Context, userID int64) (*EnrollmentInfo, error)
	CompleteEnrollment(ctx context.Context, userID int64, code string) ([]string, error)
	Disable(ctx context.Context, userID int64, code, password string) error
	VerifyTicket(ctx context.Context, ticket, code string) (*TokenPair, error)
	RegenerateBackupCodes(ctx context.Context, userID int64, code string) ([]string, error)
	Status(ctx context.Context, userID int64) (*MfaStatus, error)
}

// OAuthService handles the Google authorization-code flow
type OAuthService interface {
	Begin(ctx context.Context, intent string) (string, error)
	Complete(ctx context.Context, code, state string) (string, error)
	Exchange(ctx context.Context, loginCode string) (*TokenPair, error)
}

// InvitationService handles the invitation lifecycle
type InvitationService interface {
	CreateAccountInvitation(ctx context.Context, inviterID int64, inviteeEmail string, accountID int64, role string) (*domain.Invitation, string, error)
	CreatePropertyInvitation(ctx context.Context, inviterID int64, inviteeEmail string, propertyID int64, role string) (*domain.Invitation, string, error)
	ValidateToken(ctx context.Context, rawToken string) (*domain.Invitation, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	Accept(ctx context.Context, rawToken, password, displayName string) (*domain.User, error)
	Decline(ctx context.Context, id uuid.UUID) error
	Revoke(ctx context.Context, id uuid.UUID) error
	ExpirePending(ctx context.Context) (int64, error)
}
