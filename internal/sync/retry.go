package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

// Refresher forces a credential refresh between attempts. Implemented by
// session.Manager.
type Refresher interface {
	ForceRefresh(ctx context.Context, sessionID string) error
}

// Retrier re-runs a remote call after authorization failures only. The calls
// it protects are idempotent cell writes; a retried false negative just
// rewrites the same value. Every other error class propagates untouched.
type Retrier struct {
	cfg       *config.Config
	refresher Refresher
	log       zerolog.Logger
}

func NewRetrier(cfg *config.Config, refresher Refresher) *Retrier {
	return &Retrier{
		cfg:       cfg,
		refresher: refresher,
		log:       logger.Get(),
	}
}

// Run executes call up to the configured attempt bound. An auth failure
// triggers a forced refresh, a short propagation wait, and a retry; exhausting
// the bound yields SessionExpiredError.
func (r *Retrier) Run(ctx context.Context, sessionID string, call func(ctx context.Context) error) error {
	attempts := r.cfg.Sync.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !errors.IsAuthFailure(err) {
			return err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		r.log.Warn().Err(err).Int("attempt", attempt).Msg("Authorization failure, refreshing credential and retrying")

		if refreshErr := r.refresher.ForceRefresh(ctx, sessionID); refreshErr != nil {
			return refreshErr
		}

		// Brief wait for the refreshed credential to propagate.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.Sync.RetryDelay):
		}
	}

	return errors.NewSessionExpiredError(lastErr.Error())
}
