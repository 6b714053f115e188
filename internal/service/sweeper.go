package service

import (
	"context"
	"time"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

// Sweeper periodically removes expired refresh and confirmation tokens.
// Revoked but unexpired refresh records are left in place so replayed
// rotations stay distinguishable from unknown secrets.
type Sweeper struct {
	refreshTokens model.RefreshTokenStore
	confirmations model.ConfirmationTokenStore
	interval      time.Duration
	logger        *logger.Logger
}

func NewSweeper(
	refreshTokens model.RefreshTokenStore,
	confirmations model.ConfirmationTokenStore,
	interval time.Duration,
	logger *logger.Logger,
) *Sweeper {
	return &Sweeper{
		refreshTokens: refreshTokens,
		confirmations: confirmations,
		interval:      interval,
		logger:        logger,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single expiry pass. Store failures are logged and do not
// stop subsequent passes.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	deleted, err := s.refreshTokens.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("Sweeper: failed to delete expired refresh tokens",
			"error", err.Error())
	} else if deleted > 0 {
		s.logger.Info("Sweeper: deleted expired refresh tokens",
			"count", deleted)
	}

	deleted, err = s.confirmations.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("Sweeper: failed to delete expired confirmation tokens",
			"error", err.Error())
	} else if deleted > 0 {
		s.logger.Info("Sweeper: deleted expired confirmation tokens",
			"count", deleted)
	}
}
