package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/internal/utils"
)

type invitationService struct {
	invitations repository.InvitationRepository
	users       repository.UserRepository
	properties  repository.PropertyRepository
	subs        repository.SubscriptionRepository
	tx          TxRunner

	ttl        time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewInvitationService creates the invitation service
func NewInvitationService(
	repos *repository.Repositories,
	tx TxRunner,
	ttl time.Duration,
	bcryptCost int,
	logger *zap.Logger,
) InvitationService {
	return &invitationService{
		invitations: repos.Invitation,
		users:       repos.User,
		properties:  repos.Property,
		subs:        repos.Subscription,
		tx:          tx,
		ttl:         ttl,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// CreateAccountInvitation invites an email address into an account. The raw
// token is returned exactly once; only its hash is stored.
func (s *invitationService) CreateAccountInvitation(ctx context.Context, inviterID int64, inviteeEmail string, accountID int64, role string) (*domain.Invitation, string, error) {
	if domain.AccountRole(role) != domain.AccountRoleOwner && domain.AccountRole(role) != domain.AccountRoleMember {
		return nil, "", apperr.Newf(apperr.KindInputInvalid, "invalid account role %q", role)
	}

	return s.create(ctx, &domain.Invitation{
		Type:          domain.InvitationTypeAccount,
		InviterUserID: inviterID,
		AccountID:     &accountID,
		IntendedRole:  role,
	}, inviteeEmail)
}

// CreatePropertyInvitation invites an email address onto a property. The
// owning account is derived from the property row.
func (s *invitationService) CreatePropertyInvitation(ctx context.Context, inviterID int64, inviteeEmail string, propertyID int64, role string) (*domain.Invitation, string, error) {
	switch domain.PropertyRole(role) {
	case domain.PropertyRoleOwner, domain.PropertyRoleEditor, domain.PropertyRoleViewer, domain.PropertyRoleAgent:
	default:
		return nil, "", apperr.Newf(apperr.KindInputInvalid, "invalid property role %q", role)
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperr.New(apperr.KindNotFound, "property not found")
		}
		return nil, "", apperr.Wrap(apperr.KindInternal, "invitation failed", err)
	}

	return s.create(ctx, &domain.Invitation{
		Type:          domain.InvitationTypeProperty,
		InviterUserID: inviterID,
		AccountID:     &property.AccountID,
		PropertyID:    &propertyID,
		IntendedRole:  role,
	}, inviteeEmail)
}

func (s *invitationService) create(ctx context.Context, invitation *domain.Invitation, inviteeEmail string) (*domain.Invitation, string, error) {
	inviteeEmail = utils.SanitizeEmail(inviteeEmail)
	if !utils.ValidateEmail(inviteeEmail) {
		return nil, "", apperr.New(apperr.KindInputInvalid, "invalid invitee email address")
	}

	rawToken, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "invitation failed", err)
	}

	invitation.InviteeEmail = inviteeEmail
	invitation.TokenHash = utils.HashToken(rawToken)
	invitation.Status = domain.InvitationStatusPending
	invitation.ExpiresAt = time.Now().Add(s.ttl)

	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "invitation failed", err)
	}

	s.logger.Info("invitation created",
		zap.String("invitationId", invitation.ID.String()),
		zap.String("type", string(invitation.Type)))

	return invitation, rawToken, nil
}

// ValidateToken returns the invitation iff it is pending and unexpired
func (s *invitationService) ValidateToken(ctx context.Context, rawToken string) (*domain.Invitation, error) {
	invitation, err := s.invitations.GetByTokenHash(ctx, utils.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindInvalidInvitation, "invitation is invalid or expired")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "invitation validation failed", err)
	}

	if !invitation.IsValid() {
		return nil, apperr.New(apperr.KindInvalidInvitation, "invitation is invalid or expired")
	}

	return invitation, nil
}

// Accept redeems an invitation. The whole script is one transaction: any
// failure leaves no side effects and the invitation stays pending. The single
// documented exception is the default subscription, attached best-effort
// after commit.
func (s *invitationService) Accept(ctx context.Context, rawToken, password, displayName string) (*domain.User, error) {
	var user *domain.User
	var scaffoldedAccount *domain.Account

	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		invitation, err := tx.Invitation.GetByTokenHash(ctx, utils.HashToken(rawToken))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.New(apperr.KindInvalidInvitation, "invitation is invalid or expired")
			}
			return err
		}
		if !invitation.IsValid() {
			return apperr.New(apperr.KindInvalidInvitation, "invitation is invalid or expired")
		}

		user, err = tx.User.GetByEmail(ctx, invitation.InviteeEmail)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			user, scaffoldedAccount, err = s.createInvitee(ctx, tx, invitation, password, displayName)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if !user.IsActive && password != "" {
				if !utils.ValidatePassword(password) {
					return apperr.New(apperr.KindInputInvalid,
						"password must be at least 8 characters with upper, lower and digit")
				}
				hash, herr := utils.HashPassword(password, s.bcryptCost)
				if herr != nil {
					return herr
				}
				if aerr := tx.User.Activate(ctx, user.ID, hash); aerr != nil {
					return aerr
				}
				user.IsActive = true
			}
		}

		if err := tx.Invitation.MarkAccepted(ctx, invitation.ID, user.ID, time.Now()); err != nil {
			return err
		}

		if invitation.Type == domain.InvitationTypeProperty && invitation.PropertyID != nil {
			role := domain.PropertyRole(invitation.IntendedRole)
			if err := tx.Property.AddMember(ctx, *invitation.PropertyID, user.ID, role); err != nil {
				return err
			}
		}

		if invitation.AccountID != nil {
			if err := s.joinAccount(ctx, tx, invitation, user); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, apperr.Wrap(apperr.KindInternal, "invitation acceptance failed", err)
	}

	if scaffoldedAccount != nil {
		attachDefaultSubscription(ctx, s.subs, scaffoldedAccount.ID, s.logger)
	}

	s.logger.Info("invitation accepted", zap.Int64("userId", user.ID))
	return user, nil
}

// createInvitee creates the user named by the invitation, with the default
// account scaffold. Requires a password and display name.
func (s *invitationService) createInvitee(ctx context.Context, tx *repository.Repositories, invitation *domain.Invitation, password, displayName string) (*domain.User, *domain.Account, error) {
	if password == "" || displayName == "" {
		return nil, nil, apperr.New(apperr.KindInputInvalid, "password and name are required to accept this invitation")
	}
	if !utils.ValidatePassword(password) {
		return nil, nil, apperr.New(apperr.KindInputInvalid,
			"password must be at least 8 characters with upper, lower and digit")
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Email:        invitation.InviteeEmail,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         domain.RoleHomeowner,
		IsActive:     true,
	}
	if err := tx.User.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	account, err := createTenantScaffold(ctx, tx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, account, nil
}

// joinAccount adds the user to the invited-to account (unless already a
// member) and makes sure a contact record exists for them there
func (s *invitationService) joinAccount(ctx context.Context, tx *repository.Repositories, invitation *domain.Invitation, user *domain.User) error {
	accountID := *invitation.AccountID

	member, err := tx.Account.IsMember(ctx, user.ID, accountID)
	if err != nil {
		return err
	}
	if !member {
		role := domain.AccountRoleMember
		if invitation.Type == domain.InvitationTypeAccount && domain.AccountRole(invitation.IntendedRole) == domain.AccountRoleOwner {
			role = domain.AccountRoleOwner
		}
		if err := tx.Account.AddMember(ctx, accountID, user.ID, role); err != nil && !errors.Is(err, repository.ErrDuplicateMember) {
			return err
		}
	}

	_, err = tx.Contact.GetByAccountAndEmail(ctx, accountID, user.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return tx.Contact.Create(ctx, &domain.Contact{
			AccountID: accountID,
			Name:      user.DisplayName,
			Email:     user.Email,
			UserID:    &user.ID,
		})
	}
	return err
}

// Get retrieves an invitation by id
func (s *invitationService) Get(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	invitation, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "invitation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "invitation lookup failed", err)
	}
	return invitation, nil
}

// Decline transitions a pending invitation to declined
func (s *invitationService) Decline(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domain.InvitationStatusDeclined)
}

// Revoke transitions a pending invitation to revoked
func (s *invitationService) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domain.InvitationStatusRevoked)
}

func (s *invitationService) transition(ctx context.Context, id uuid.UUID, to domain.InvitationStatus) error {
	err := s.invitations.UpdateStatus(ctx, id, domain.InvitationStatusPending, to)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.KindInvalidInvitation, "invitation is not pending")
		}
		return apperr.Wrap(apperr.KindInternal, "invitation update failed", err)
	}
	return nil
}

// ExpirePending flips timed-out pending invitations to expired
func (s *invitationService) ExpirePending(ctx context.Context) (int64, error) {
	count, err := s.invitations.ExpirePending(ctx, time.Now())
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "invitation sweep failed", err)
	}
	return count, nil
}
