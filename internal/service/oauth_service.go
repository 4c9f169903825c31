package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/internal/utils"
	"github.com/homeopshq/homeops-api/pkg/database"
	goredis "github.com/redis/go-redis/v9"
)

const (
	oauthStateTTL     = 10 * time.Minute
	oauthLoginCodeTTL = 60 * time.Second

	intentSignin = "signin"
	intentSignup = "signup"
)

// IDTokenVerifier validates a provider id token and returns its payload.
// Production uses google.golang.org/api/idtoken; tests substitute a stub.
type IDTokenVerifier func(ctx context.Context, rawIDToken, audience string) (*idtoken.Payload, error)

type oauthService struct {
	users  repository.UserRepository
	idents repository.OAuthIdentityRepository
	subs   repository.SubscriptionRepository
	tx     TxRunner
	auth   AuthService
	redis  *database.Redis

	oauth     *oauth2.Config
	verify    IDTokenVerifier
	clientID  string
	webOrigin string
	logger    *zap.Logger
}

// NewOAuthService creates the Google OAuth service
func NewOAuthService(
	repos *repository.Repositories,
	tx TxRunner,
	auth AuthService,
	redis *database.Redis,
	clientID, clientSecret, redirectURI, webOrigin string,
	verify IDTokenVerifier,
	logger *zap.Logger,
) OAuthService {
	if verify == nil {
		verify = idtoken.Validate
	}
	return &oauthService{
		users:  repos.User,
		idents: repos.OAuthIdentity,
		subs:   repos.Subscription,
		tx:     tx,
		auth:   auth,
		redis:  redis,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		verify:    verify,
		clientID:  clientID,
		webOrigin: webOrigin,
		logger:    logger,
	}
}

func oauthStateKey(state string) string { return "oauth:state:" + state }
func oauthLoginKey(code string) string  { return "oauth:logincode:" + code }

// Begin starts the authorization-code flow. The CSRF state is stored in Redis
// together with the caller's intent and must round-trip via the callback.
func (s *oauthService) Begin(ctx context.Context, intent string) (string, error) {
	if intent != intentSignin && intent != intentSignup {
		return "", apperr.New(apperr.KindInputInvalid, "intent must be signin or signup")
	}

	state, err := utils.GenerateOpaqueToken()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to start oauth flow", err)
	}

	if err := s.redis.Client.Set(ctx, oauthStateKey(state), intent, oauthStateTTL).Err(); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to start oauth flow", err)
	}

	return s.oauth.AuthCodeURL(state), nil
}

// Complete handles the provider callback: verifies state, exchanges the code,
// validates the id token, resolves or creates the local user, and returns the
// frontend redirect URL carrying a one-time login code.
func (s *oauthService) Complete(ctx context.Context, code, state string) (string, error) {
	intent, err := s.redis.Client.GetDel(ctx, oauthStateKey(state)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", apperr.New(apperr.KindUnauthorized, "invalid or expired oauth state")
		}
		return "", apperr.Wrap(apperr.KindInternal, "oauth callback failed", err)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadUpstream, "authorization code exchange failed", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return "", apperr.New(apperr.KindBadUpstream, "provider response missing id token")
	}

	payload, err := s.verify(ctx, rawIDToken, s.clientID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnauthorized, "id token verification failed", err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return "", apperr.New(apperr.KindBadUpstream, "id token missing email claim")
	}
	email = utils.SanitizeEmail(email)

	user, err := s.resolveUser(ctx, payload.Subject, email, name, intent)
	if err != nil {
		return "", err
	}

	loginCode, err := utils.GenerateOpaqueToken()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "oauth callback failed", err)
	}
	if err := s.redis.Client.Set(ctx, oauthLoginKey(loginCode), strconv.FormatInt(user.ID, 10), oauthLoginCodeTTL).Err(); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "oauth callback failed", err)
	}

	return fmt.Sprintf("%s/auth/callback?code=%s", s.webOrigin, url.QueryEscape(loginCode)), nil
}

// Exchange redeems a one-time login code for the token pair
func (s *oauthService) Exchange(ctx context.Context, loginCode string) (*TokenPair, error) {
	userIDStr, err := s.redis.Client.GetDel(ctx, oauthLoginKey(loginCode)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperr.New(apperr.KindUnauthorized, "invalid or expired login code")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "login code exchange failed", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "login code exchange failed", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid or expired login code", err)
	}

	pair, err := s.auth.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("userId", user.ID), zap.Error(err))
	}

	return pair, nil
}

// resolveUser maps the verified provider identity to a local user. Intent
// decides whether an unknown identity is an error (signin) or a signup.
func (s *oauthService) resolveUser(ctx context.Context, subject, email, name, intent string) (*domain.User, error) {
	identity, err := s.idents.GetByProvider(ctx, "google", subject)
	if err == nil {
		user, uerr := s.users.GetByID(ctx, identity.UserID)
		if uerr != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "oauth sign-in failed", uerr)
		}
		if !user.IsActive {
			return nil, apperr.New(apperr.KindUnauthorized, "account is not active")
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "oauth sign-in failed", err)
	}

	// no linked identity yet; try by email
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !user.IsActive {
			return nil, apperr.New(apperr.KindUnauthorized, "account is not active")
		}
		if lerr := s.idents.Create(ctx, &domain.OAuthIdentity{
			UserID:         user.ID,
			Provider:       "google",
			ProviderUserID: subject,
			Email:          &email,
		}); lerr != nil && !errors.Is(lerr, repository.ErrDuplicateOAuthIdentity) {
			return nil, apperr.Wrap(apperr.KindInternal, "oauth sign-in failed", lerr)
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "oauth sign-in failed", err)
	}

	if intent != intentSignup {
		return nil, apperr.New(apperr.KindUnauthorized, "no account exists for this google identity")
	}

	return s.signupUser(ctx, subject, email, name)
}

// signupUser creates a new OAuth-only user with the default tenant scaffold
func (s *oauthService) signupUser(ctx context.Context, subject, email, name string) (*domain.User, error) {
	if name == "" {
		name = email
	}

	user := &domain.User{
		Email:       email,
		DisplayName: name,
		Role:        domain.RoleHomeowner,
		IsActive:    true,
	}

	var account *domain.Account
	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		if err := tx.OAuthIdentity.Create(ctx, &domain.OAuthIdentity{
			UserID:         user.ID,
			Provider:       "google",
			ProviderUserID: subject,
			Email:          &email,
		}); err != nil {
			return err
		}
		var err error
		account, err = createTenantScaffold(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperr.New(apperr.KindConflict, "email is already registered")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "oauth signup failed", err)
	}

	attachDefaultSubscription(ctx, s.subs, account.ID, s.logger)

	s.logger.Info("oauth user created",
		zap.Int64("userId", user.ID),
		zap.Int64("accountId", account.ID))

	return user, nil
}
