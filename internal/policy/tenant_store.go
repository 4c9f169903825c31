package policy

import (
	"context"

	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// tenantStore adapts the repository set to the engine's TenantReader
type tenantStore struct {
	accounts   repository.AccountRepository
	properties repository.PropertyRepository
}

// NewTenantStore wraps the repositories as a TenantReader
func NewTenantStore(repos *repository.Repositories) TenantReader {
	return &tenantStore{accounts: repos.Account, properties: repos.Property}
}

func (s *tenantStore) IsUserInAccount(ctx context.Context, userID, accountID int64) (bool, error) {
	return s.accounts.IsMember(ctx, userID, accountID)
}

func (s *tenantStore) IsUserOnProperty(ctx context.Context, userID, propertyID int64) (bool, error) {
	return s.properties.IsMember(ctx, userID, propertyID)
}

func (s *tenantStore) PropertyIDForUID(ctx context.Context, uid string) (int64, error) {
	return s.properties.IDForUID(ctx, uid)
}

func (s *tenantStore) PropertyMemberRole(ctx context.Context, userID, propertyID int64) (domain.PropertyRole, error) {
	return s.properties.MemberRole(ctx, userID, propertyID)
}

func (s *tenantStore) UsersShareAccount(ctx context.Context, userA, userB int64) (bool, error) {
	return s.accounts.ShareAccount(ctx, userA, userB)
}
