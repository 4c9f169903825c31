package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/shopspring/decimal"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role, onlyActive bool) ([]*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, displayName, image *string) error
	UpdateLastLogin(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	Activate(ctx context.Context, id int64, passwordHash string) error
	SetMfa(ctx context.Context, id int64, enabled bool, secretEnc *string) error
	SetContactID(ctx context.Context, id, contactID int64) error
	Delete(ctx context.Context, id int64) error
}

// TokenRepository defines methods for refresh token operations
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindValid(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// MfaRepository defines methods for MFA enrollment and backup code operations
type MfaRepository interface {
	UpsertEnrollment(ctx context.Context, userID int64, secretEnc string, expiresAt time.Time) error
	GetEnrollment(ctx context.Context, userID int64) (*domain.MfaEnrollment, error)
	DeleteEnrollment(ctx context.Context, userID int64) error
	DeleteExpiredEnrollments(ctx context.Context) (int64, error)
	InsertBackupCodes(ctx context.Context, userID int64, codeHashes []string) error
	DeleteBackupCodes(ctx context.Context, userID int64) error
	ConsumeBackupCode(ctx context.Context, userID int64, codeHash string) (bool, error)
	CountRemainingBackupCodes(ctx context.Context, userID int64) (int, error)
}

// OAuthIdentityRepository defines methods for linked provider identities
type OAuthIdentityRepository interface {
	Create(ctx context.Context, identity *domain.OAuthIdentity) error
	GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.OAuthIdentity, error)
	GetByUserID(ctx context.Context, userID int64) ([]*domain.OAuthIdentity, error)
}

// AccountRepository defines methods for accounts and account memberships
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	Delete(ctx context.Context, id int64) error
	IsMember(ctx context.Context, userID, accountID int64) (bool, error)
	AddMember(ctx context.Context, accountID, userID int64, role domain.AccountRole) error
	RemoveMember(ctx context.Context, accountID, userID int64) error
	Members(ctx context.Context, accountID int64) ([]*domain.AccountMember, error)
	AccountsForUser(ctx context.Context, userID int64) ([]*domain.Account, error)
	AccountIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	OwnsAnyAccount(ctx context.Context, userID int64) (bool, error)
	ShareAccount(ctx context.Context, userA, userB int64) (bool, error)
}

// PropertyRepository defines methods for properties and property memberships
type PropertyRepository interface {
	Create(ctx context.Context, property *domain.Property) error
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
	IDForUID(ctx context.Context, uid string) (int64, error)
	IsMember(ctx context.Context, userID, propertyID int64) (bool, error)
	MemberRole(ctx context.Context, userID, propertyID int64) (domain.PropertyRole, error)
	AddMember(ctx context.Context, propertyID, userID int64, role domain.PropertyRole) error
	Systems(ctx context.Context, propertyID int64) ([]*domain.PropertySystem, error)
}

// InvitationRepository defines methods for invitation persistence
type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InvitationStatus) error
	MarkAccepted(ctx context.Context, id uuid.UUID, userID int64, at time.Time) error
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// UsageRepository defines methods for AI usage accounting
type UsageRepository interface {
	Insert(ctx context.Context, event *domain.UsageEvent) error
	MonthlySpend(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// SubscriptionRepository defines methods for products and account subscriptions
type SubscriptionRepository interface {
	UpsertProduct(ctx context.Context, product *domain.SubscriptionProduct) error
	GetProductByName(ctx context.Context, name string) (*domain.SubscriptionProduct, error)
	CreateAccountSubscription(ctx context.Context, sub *domain.AccountSubscription) error
}

// ContactRepository defines methods for account contact records
type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	GetByAccountAndEmail(ctx context.Context, accountID int64, email string) (*domain.Contact, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Contact, error)
	ListByAccountIDs(ctx context.Context, accountIDs []int64) ([]*domain.Contact, error)
	ListAll(ctx context.Context) ([]*domain.Contact, error)
}
