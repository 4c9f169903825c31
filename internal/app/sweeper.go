package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/internal/service"
)

// Sweeper periodically clears expired refresh tokens, pending invitations
// past their deadline, and abandoned MFA enrollments
type Sweeper struct {
	repos       *repository.Repositories
	invitations service.InvitationService
	interval    time.Duration
	logger      *zap.Logger
}

func NewSweeper(repos *repository.Repositories, invitations service.InvitationService, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		repos:       repos,
		invitations: invitations,
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps once immediately and then on every tick until the context is
// cancelled
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	tokens, err := s.repos.Token.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("refresh token sweep failed", zap.Error(err))
	}

	invitations, err := s.invitations.ExpirePending(ctx)
	if err != nil {
		s.logger.Error("invitation sweep failed", zap.Error(err))
	}

	enrollments, err := s.repos.Mfa.DeleteExpiredEnrollments(ctx)
	if err != nil {
		s.logger.Error("mfa enrollment sweep failed", zap.Error(err))
	}

	s.logger.Info("sweep complete",
		zap.Int64("expiredTokens", tokens),
		zap.Int64("expiredInvitations", invitations),
		zap.Int64("expiredEnrollments", enrollments))
}
