package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

// DraftSweeper reclaims idle drafts past their TTL.
type DraftSweeper interface {
	SweepExpired(now time.Time) []string
	Len() int
}

// DraftExpiryJob discards drafts abandoned by their operator so the
// registry doesn't grow without bound.
type DraftExpiryJob struct {
	registry DraftSweeper
	logg     *logger.Logger
	now      func() time.Time
}

func NewDraftExpiryJob(registry DraftSweeper, logg *logger.Logger) (*DraftExpiryJob, error) {
	if registry == nil {
		return nil, fmt.Errorf("draft registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &DraftExpiryJob{
		registry: registry,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (j *DraftExpiryJob) Name() string { return "draft_expiry" }

func (j *DraftExpiryJob) Run(ctx context.Context) error {
	expired := j.registry.SweepExpired(j.now())
	if len(expired) > 0 {
		ctx = j.logg.WithFields(ctx, map[string]any{
			"expired":   len(expired),
			"remaining": j.registry.Len(),
		})
		j.logg.Info(ctx, "expired drafts reclaimed")
	}
	return nil
}
