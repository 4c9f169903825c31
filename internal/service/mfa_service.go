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

type mfaService struct {
	users     repository.UserRepository
	mfa       repository.MfaRepository
	auth      AuthService
	jwt       *utils.JWTManager
	box       *utils.SecretBox
	attempts  *MfaAttempts
	blacklist *TokenBlacklistService

	issuer        string
	enrollmentTTL time.Duration
	logger        *zap.Logger
}

// NewMfaService creates the MFA service
func NewMfaService(
	repos *repository.Repositories,
	auth AuthService,
	jwtManager *utils.JWTManager,
	box *utils.SecretBox,
	attempts *MfaAttempts,
	blacklist *TokenBlacklistService,
	issuer string,
	enrollmentTTL time.Duration,
	logger *zap.Logger,
) MfaService {
	return &mfaService{
		users:         repos.User,
		mfa:           repos.Mfa,
		auth:          auth,
		jwt:           jwtManager,
		box:           box,
		attempts:      attempts,
		blacklist:     blacklist,
		issuer:        issuer,
		enrollmentTTL: enrollmentTTL,
		logger:        logger,
	}
}

// BeginEnrollment generates a TOTP secret and parks it, encrypted, in the
// pending-enrollment table. Re-running replaces the previous attempt.
func (s *mfaService) BeginEnrollment(ctx context.Context, userID int64) (*EnrollmentInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}
	if user.MfaEnabled {
		return nil, apperr.New(apperr.KindConflict, "mfa is already enabled")
	}

	secret, otpauthURL, err := utils.GenerateTotpSecret(s.issuer, user.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}

	secretEnc, err := s.box.Encrypt(secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}

	expiresAt := time.Now().Add(s.enrollmentTTL)
	if err := s.mfa.UpsertEnrollment(ctx, userID, secretEnc, expiresAt); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}

	qr, err := utils.QRCodeDataURL(otpauthURL)
	if err != nil {
		// the manual code still works without the rendered image
		s.logger.Warn("failed to render enrollment qr code", zap.Error(err))
		qr = ""
	}

	return &EnrollmentInfo{
		OtpauthURL:    otpauthURL,
		ManualCode:    secret,
		QRCodeDataURL: qr,
	}, nil
}

// CompleteEnrollment confirms the pending secret with a live TOTP code,
// moves the secret onto the user, and returns the one-time backup codes.
func (s *mfaService) CompleteEnrollment(ctx context.Context, userID int64, code string) ([]string, error) {
	enrollment, err := s.mfa.GetEnrollment(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindEnrollmentExpired, "no pending mfa enrollment")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}

	if time.Now().After(enrollment.ExpiresAt) {
		_ = s.mfa.DeleteEnrollment(ctx, userID)
		return nil, apperr.New(apperr.KindEnrollmentExpired, "mfa enrollment has expired")
	}

	secret, err := s.box.Decrypt(enrollment.SecretEnc)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}

	if !utils.VerifyTotpCode(secret, code) {
		return nil, apperr.New(apperr.KindInvalidCode, "invalid verification code")
	}

	backupCodes, err := utils.GenerateBackupCodes(utils.BackupCodeCount)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}
	hashes := make([]string, len(backupCodes))
	for i, c := range backupCodes {
		hashes[i] = utils.HashBackupCode(c)
	}

	if err := s.users.SetMfa(ctx, userID, true, &enrollment.SecretEnc); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}
	if err := s.mfa.InsertBackupCodes(ctx, userID, hashes); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "enrollment failed", err)
	}
	if err := s.mfa.DeleteEnrollment(ctx, userID); err != nil {
		s.logger.Warn("failed to clear pending enrollment", zap.Int64("userId", userID), zap.Error(err))
	}

	s.logger.Info("mfa enabled", zap.Int64("userId", userID))
	return backupCodes, nil
}

// Disable turns MFA off. One valid proof is required: a TOTP code, an unused
// backup code, or the current password.
func (s *mfaService) Disable(ctx context.Context, userID int64, code, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mfa disable failed", err)
	}
	if !user.MfaEnabled {
		return apperr.New(apperr.KindPrecondition, "mfa is not enabled")
	}

	proven := false
	switch {
	case code != "":
		proven, err = s.verifySecondFactor(ctx, user, code)
		if err != nil {
			return err
		}
	case password != "":
		proven = user.PasswordHash != "" && utils.CheckPasswordHash(password, user.PasswordHash)
	default:
		return apperr.New(apperr.KindInputInvalid, "a code or password is required")
	}
	if !proven {
		return apperr.New(apperr.KindInvalidCode, "invalid verification code")
	}

	if err := s.users.SetMfa(ctx, userID, false, nil); err != nil {
		return apperr.Wrap(apperr.KindInternal, "mfa disable failed", err)
	}
	if err := s.mfa.DeleteBackupCodes(ctx, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "mfa disable failed", err)
	}

	s.logger.Info("mfa disabled", zap.Int64("userId", userID))
	return nil
}

// VerifyTicket exchanges an MFA ticket plus a valid second factor for the
// token pair. Three wrong codes revoke the ticket.
func (s *mfaService) VerifyTicket(ctx context.Context, ticket, code string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateMfaTicket(ticket)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid mfa ticket", err)
	}

	if claims.JTI != "" {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.JTI)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "mfa verification failed", err)
		}
		if revoked {
			return nil, apperr.New(apperr.KindUnauthorized, "mfa ticket has been revoked")
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid mfa ticket", err)
	}

	ok, err := s.verifySecondFactor(ctx, user, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		ticketTTL := time.Until(time.Unix(claims.Exp, 0))
		count, cerr := s.attempts.Fail(ctx, claims.JTI, ticketTTL)
		if cerr != nil {
			s.logger.Warn("failed to record mfa attempt", zap.Error(cerr))
		}
		if count >= maxMfaAttempts {
			if rerr := s.blacklist.Revoke(ctx, claims.JTI, ticketTTL); rerr != nil {
				s.logger.Warn("failed to revoke mfa ticket", zap.Error(rerr))
			}
			return nil, apperr.New(apperr.KindUnauthorized, "too many failed attempts, log in again")
		}
		return nil, apperr.New(apperr.KindInvalidCode, "invalid verification code")
	}

	if claims.JTI != "" {
		_ = s.attempts.Reset(ctx, claims.JTI)
		// a ticket is single-use: revoke it for its remaining lifetime
		_ = s.blacklist.Revoke(ctx, claims.JTI, time.Until(time.Unix(claims.Exp, 0)))
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

// RegenerateBackupCodes replaces all backup codes after a valid TOTP proof
func (s *mfaService) RegenerateBackupCodes(ctx context.Context, userID int64, code string) ([]string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "backup code regeneration failed", err)
	}
	if !user.MfaEnabled {
		return nil, apperr.New(apperr.KindPrecondition, "mfa is not enabled")
	}

	ok, err := s.verifyTotpOnly(user, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindInvalidCode, "invalid verification code")
	}

	backupCodes, err := utils.GenerateBackupCodes(utils.BackupCodeCount)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "backup code regeneration failed", err)
	}
	hashes := make([]string, len(backupCodes))
	for i, c := range backupCodes {
		hashes[i] = utils.HashBackupCode(c)
	}

	if err := s.mfa.DeleteBackupCodes(ctx, userID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "backup code regeneration failed", err)
	}
	if err := s.mfa.InsertBackupCodes(ctx, userID, hashes); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "backup code regeneration failed", err)
	}

	return backupCodes, nil
}

// Status reports whether MFA is on and how many backup codes remain
func (s *mfaService) Status(ctx context.Context, userID int64) (*MfaStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "mfa status failed", err)
	}

	status := &MfaStatus{Enabled: user.MfaEnabled}
	if user.MfaEnabled {
		remaining, err := s.mfa.CountRemainingBackupCodes(ctx, userID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "mfa status failed", err)
		}
		status.BackupCodesRemaining = remaining
	}

	return status, nil
}

// verifySecondFactor accepts either a live TOTP code or an unused backup
// code. Backup codes are consumed atomically; replay fails.
func (s *mfaService) verifySecondFactor(ctx context.Context, user *domain.User, code string) (bool, error) {
	ok, err := s.verifyTotpOnly(user, code)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	consumed, err := s.mfa.ConsumeBackupCode(ctx, user.ID, utils.HashBackupCode(code))
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "mfa verification failed", err)
	}
	return consumed, nil
}

func (s *mfaService) verifyTotpOnly(user *domain.User, code string) (bool, error) {
	if user.MfaSecretEnc == nil {
		return false, nil
	}
	secret, err := s.box.Decrypt(*user.MfaSecretEnc)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "mfa verification failed", err)
	}
	return utils.VerifyTotpCode(secret, code), nil
}
