package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired rating prompts.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// PromptSweeper periodically drops rating prompts nobody answered.
type PromptSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewPromptSweeper builds a sweeper that runs every interval.
func NewPromptSweeper(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *PromptSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptSweeper{sweeper: sweeper, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (p *PromptSweeper) Run(ctx context.Context) {
	if p.sweeper == nil || p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepOnce(ctx)
		}
	}
}

func (p *PromptSweeper) sweepOnce(ctx context.Context) {
	removed, err := p.sweeper.Sweep(ctx)
	if err != nil {
		p.logger.Warn("rating prompt sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		p.logger.Debug("expired rating prompts removed", zap.Int("count", removed))
	}
}
