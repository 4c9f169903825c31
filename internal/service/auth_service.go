package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/internal/utils"
)

// invalidCredentialsMsg is the single message for every credential failure so
// responses do not reveal whether the email exists
const invalidCredentialsMsg = "invalid email or password"

// dummyHash absorbs a bcrypt comparison when the email is unknown, keeping
// the unknown-email and wrong-password paths on the same timing profile
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type authService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	subs      repository.SubscriptionRepository
	tx        TxRunner
	jwt       *utils.JWTManager
	blacklist *TokenBlacklistService

	refreshTTL time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates the authentication service
func NewAuthService(
	repos *repository.Repositories,
	tx TxRunner,
	jwtManager *utils.JWTManager,
	blacklist *TokenBlacklistService,
	refreshTTL time.Duration,
	bcryptCost int,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:      repos.User,
		tokens:     repos.Token,
		subs:       repos.Subscription,
		tx:         tx,
		jwt:        jwtManager,
		blacklist:  blacklist,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register self-registers a homeowner. The user, their default account, the
// owner membership and the contact record are created in one transaction;
// the default subscription is attached best-effort afterwards.
func (s *authService) Register(ctx context.Context, displayName, email, password string) (*domain.User, *TokenPair, error) {
	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, nil, apperr.New(apperr.KindInputInvalid, "invalid email address")
	}
	if !utils.ValidatePassword(password) {
		return nil, nil, apperr.New(apperr.KindInputInvalid,
			"password must be at least 8 characters with upper, lower and digit")
	}
	if displayName == "" {
		return nil, nil, apperr.New(apperr.KindInputInvalid, "name is required")
	}

	passwordHash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Role:         domain.RoleHomeowner,
		IsActive:     true,
	}

	var account *domain.Account
	err = s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		account, err = createTenantScaffold(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, apperr.New(apperr.KindConflict, "email is already registered")
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "registration failed", err)
	}

	attachDefaultSubscription(ctx, s.subs, account.ID, s.logger)

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered",
		zap.Int64("userId", user.ID),
		zap.Int64("accountId", account.ID))

	return user, pair, nil
}

// Login runs the password step. Users with MFA enabled get a short-lived
// ticket instead of tokens; the second factor is verified separately.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if user.MfaEnabled {
		ticket, err := s.jwt.GenerateMfaTicket(user)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to issue mfa ticket", err)
		}
		return &LoginResult{User: user, MfaTicket: ticket}, nil
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("userId", user.ID), zap.Error(err))
	}

	return &LoginResult{User: user, Pair: pair}, nil
}

func (s *authService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.CheckPasswordHash(password, dummyHash)
			return nil, apperr.New(apperr.KindUnauthorized, invalidCredentialsMsg)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "login failed", err)
	}

	if user.PasswordHash == "" || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.New(apperr.KindUnauthorized, invalidCredentialsMsg)
	}

	if !user.IsActive {
		return nil, apperr.New(apperr.KindUnauthorized, invalidCredentialsMsg)
	}

	return user, nil
}

// IssueTokens mints an access token and a fresh opaque refresh token. Only
// the SHA-256 of the refresh token is persisted.
func (s *authService) IssueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue access token", err)
	}

	refreshRaw, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue refresh token", err)
	}

	token := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refreshRaw),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store refresh token", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshRaw,
		ExpiresIn:    s.jwt.GetAccessTokenExpiry(),
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token is not rotated; it stays valid until logout or TTL sweep.
func (s *authService) Refresh(ctx context.Context, refreshTokenRaw string) (string, int, error) {
	stored, err := s.tokens.FindValid(ctx, utils.HashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", 0, apperr.New(apperr.KindInvalidRefresh, "refresh token is invalid or expired")
		}
		return "", 0, apperr.Wrap(apperr.KindInternal, "refresh failed", err)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return "", 0, apperr.New(apperr.KindInvalidRefresh, "refresh token is invalid or expired")
	}
	if !user.IsActive {
		return "", 0, apperr.New(apperr.KindInvalidRefresh, "refresh token is invalid or expired")
	}

	accessToken, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.KindInternal, "failed to issue access token", err)
	}

	return accessToken, s.jwt.GetAccessTokenExpiry(), nil
}

// Logout revokes the presented refresh token and blacklists the access token
// for its remaining lifetime. Revocation is idempotent.
func (s *authService) Logout(ctx context.Context, refreshTokenRaw string, claims *domain.TokenClaims) error {
	if refreshTokenRaw != "" {
		err := s.tokens.DeleteByTokenHash(ctx, utils.HashToken(refreshTokenRaw))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperr.Wrap(apperr.KindInternal, "logout failed", err)
		}
	}

	if claims != nil && claims.JTI != "" {
		ttl := time.Until(time.Unix(claims.Exp, 0))
		if err := s.blacklist.Revoke(ctx, claims.JTI, ttl); err != nil {
			return apperr.Wrap(apperr.KindInternal, "logout failed", err)
		}
	}

	return nil
}

// LogoutAll signs the user out everywhere by deleting all their refresh tokens
func (s *authService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "logout failed", err)
	}
	return nil
}

// ValidateAccess validates a bearer token and checks it against the
// revocation blacklist
func (s *authService) ValidateAccess(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid access token", err)
	}

	if claims.JTI != "" {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.JTI)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "token validation failed", err)
		}
		if revoked {
			return nil, apperr.New(apperr.KindUnauthorized, "token has been revoked")
		}
	}

	return claims, nil
}
