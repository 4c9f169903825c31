package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
)

// TenantService exposes the account, property and user surface the guards
// gate. Reads are plain projections; mutations enforce the ownership
// invariants.
type TenantService interface {
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	AccountMembers(ctx context.Context, accountID int64) ([]*domain.AccountMember, error)
	RemoveAccountMember(ctx context.Context, requester *domain.TokenClaims, accountID, userID int64) error
	AccountsForUser(ctx context.Context, userID int64) ([]*domain.Account, error)

	GetProperty(ctx context.Context, propertyID int64) (*domain.Property, error)
	PropertySystems(ctx context.Context, propertyID int64) ([]*domain.PropertySystem, error)

	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, displayName, image *string) (*domain.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type tenantService struct {
	users      repository.UserRepository
	accounts   repository.AccountRepository
	properties repository.PropertyRepository
	logger     *zap.Logger
}

// NewTenantService creates the tenant service
func NewTenantService(repos *repository.Repositories, logger *zap.Logger) TenantService {
	return &tenantService{
		users:      repos.User,
		accounts:   repos.Account,
		properties: repos.Property,
		logger:     logger,
	}
}

func (s *tenantService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "account not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "account lookup failed", err)
	}
	return account, nil
}

func (s *tenantService) AccountMembers(ctx context.Context, accountID int64) ([]*domain.AccountMember, error) {
	members, err := s.accounts.Members(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "member listing failed", err)
	}
	return members, nil
}

// RemoveAccountMember removes a membership. Only an account owner or a
// platform admin may remove members; removing the sole owner is a
// precondition failure.
func (s *tenantService) RemoveAccountMember(ctx context.Context, requester *domain.TokenClaims, accountID, userID int64) error {
	if !requester.Role.IsPlatformAdmin() {
		members, err := s.accounts.Members(ctx, accountID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "member removal failed", err)
		}
		requesterIsOwner := false
		for _, m := range members {
			if m.UserID == requester.UserID && m.Role == domain.AccountRoleOwner {
				requesterIsOwner = true
				break
			}
		}
		// members may remove themselves, everyone else needs owner
		if !requesterIsOwner && requester.UserID != userID {
			return apperr.New(apperr.KindForbidden, "access denied")
		}
	}

	err := s.accounts.RemoveMember(ctx, accountID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLastOwner):
			return apperr.New(apperr.KindPrecondition, "cannot remove the only owner of an account")
		case errors.Is(err, repository.ErrNotFound):
			return apperr.New(apperr.KindNotFound, "membership not found")
		default:
			return apperr.Wrap(apperr.KindInternal, "member removal failed", err)
		}
	}

	s.logger.Info("account member removed",
		zap.Int64("accountId", accountID),
		zap.Int64("userId", userID))
	return nil
}

func (s *tenantService) AccountsForUser(ctx context.Context, userID int64) ([]*domain.Account, error) {
	accounts, err := s.accounts.AccountsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "account listing failed", err)
	}
	return accounts, nil
}

func (s *tenantService) GetProperty(ctx context.Context, propertyID int64) (*domain.Property, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "property not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "property lookup failed", err)
	}
	return property, nil
}

func (s *tenantService) PropertySystems(ctx context.Context, propertyID int64) ([]*domain.PropertySystem, error) {
	systems, err := s.properties.Systems(ctx, propertyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "system listing failed", err)
	}
	return systems, nil
}

func (s *tenantService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "user lookup failed", err)
	}
	return user, nil
}

// UpdateProfile is a guarded partial update; role and email never change here
func (s *tenantService) UpdateProfile(ctx context.Context, userID int64, displayName, image *string) (*domain.User, error) {
	if displayName == nil && image == nil {
		return nil, apperr.New(apperr.KindInputInvalid, "nothing to update")
	}
	if displayName != nil && *displayName == "" {
		return nil, apperr.New(apperr.KindInputInvalid, "name cannot be empty")
	}

	if err := s.users.UpdateProfile(ctx, userID, displayName, image); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "profile update failed", err)
	}

	return s.GetUser(ctx, userID)
}

// DeleteUser hard-deletes a user. Account owners cannot be deleted.
func (s *tenantService) DeleteUser(ctx context.Context, userID int64) error {
	owns, err := s.accounts.OwnsAnyAccount(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "user deletion failed", err)
	}
	if owns {
		return apperr.New(apperr.KindPrecondition, "cannot delete a user who owns an account")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "user not found")
		}
		return apperr.Wrap(apperr.KindInternal, "user deletion failed", err)
	}

	s.logger.Info("user deleted", zap.Int64("userId", userID))
	return nil
}
