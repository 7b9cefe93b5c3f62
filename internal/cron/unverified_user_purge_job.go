package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type unverifiedUserPurger interface {
	PurgeUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UnverifiedUserPurgeJobParams configure the unverified account cleanup.
type UnverifiedUserPurgeJobParams struct {
	Logger *logger.Logger
	Users  unverifiedUserPurger
	TTL    time.Duration
}

// NewUnverifiedUserPurgeJob builds the job deleting accounts that never
// verified within TTL.
func NewUnverifiedUserPurgeJob(params UnverifiedUserPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("unverified user ttl must be positive")
	}
	return &unverifiedUserPurgeJob{
		logg:  params.Logger,
		users: params.Users,
		ttl:   params.TTL,
		now:   time.Now,
	}, nil
}

type unverifiedUserPurgeJob struct {
	logg  *logger.Logger
	users unverifiedUserPurger
	ttl   time.Duration
	now   func() time.Time
}

func (j *unverifiedUserPurgeJob) Name() string { return "unverified-user-purge" }

func (j *unverifiedUserPurgeJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	purged, err := j.users.PurgeUnverifiedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge unverified users: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "users_purged", purged), "unverified user purge complete")
	return int(purged), nil
}
