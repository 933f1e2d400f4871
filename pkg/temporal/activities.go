package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/leowmjw/go-walk-sync/pkg/config"
	"github.com/leowmjw/go-walk-sync/pkg/pipeline"
	"github.com/leowmjw/go-walk-sync/pkg/segment"
)

// Non-retryable application error types returned by the session activity.
const (
	ErrTypeNoWalkBegin    = "NoWalkBegin"
	ErrTypeInvalidRequest = "InvalidRequest"
)

// Activities runs sessions on the worker host.
type Activities struct {
	logger *slog.Logger
	cfg    *config.Config
	opts   []pipeline.Option
}

// NewActivities creates the activities. opts are passed to every runner.
func NewActivities(logger *slog.Logger, cfg *config.Config, opts ...pipeline.Option) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{logger: logger, cfg: cfg, opts: opts}
}

// SyncSessionActivity synchronizes one session and heartbeats after every
// processed interval.
func (a *Activities) SyncSessionActivity(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	}
	a.logger.Info("Synchronizing session", "subject", req.Subject, "walk", req.Walk, "dryRun", req.DryRun)

	cfg := a.cfg
	if req.DryRun && !cfg.Sync.DryRun {
		c := *a.cfg
		c.Sync.DryRun = true
		cfg = &c
	}

	opts := append([]pipeline.Option{
		pipeline.WithProgress(func(index int) { activity.RecordHeartbeat(ctx, index) }),
	}, a.opts...)
	runner, err := pipeline.NewRunner(cfg, a.logger, opts...)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	}

	summary, err := runner.RunSession(ctx, req.Session())
	if errors.Is(err, segment.ErrNoWalkBegin) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoWalkBegin, err)
	}
	if err != nil {
		a.logger.Error("Session failed", "subject", req.Subject, "walk", req.Walk, "error", err)
		return nil, fmt.Errorf("failed to synchronize session: %w", err)
	}

	a.logger.Info("Session synchronized", "subject", req.Subject, "walk", req.Walk, "intervals", summary.Intervals)
	return NewSyncResult(summary), nil
}
