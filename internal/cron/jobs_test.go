package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeSweeper struct {
	cutoff time.Time
	now    time.Time
	result orders.SweepResult
	err    error
}

func (f *fakeSweeper) Sweep(_ context.Context, cutoff, now time.Time) (orders.SweepResult, error) {
	f.cutoff = cutoff
	f.now = now
	return f.result, f.err
}

type fakePurger struct {
	cutoff time.Time
	purged int64
	err    error
}

func (f *fakePurger) PurgeUnverifiedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.purged, f.err
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestOrderExpirationJobUsesPaymentTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{result: orders.SweepResult{OrdersCancelled: 2, PromocodesReleased: 1, ItemsRestocked: 5}}
	job, err := NewOrderExpirationJob(OrderExpirationJobParams{
		Logger:     discardLogger(),
		Sweeper:    sweeper,
		PaymentTTL: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	job.(*orderExpirationJob).now = func() time.Time { return now }

	processed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 processed orders, got %d", processed)
	}
	if want := now.Add(-30 * time.Minute); !sweeper.cutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", sweeper.cutoff, want)
	}
	if !sweeper.now.Equal(now) {
		t.Fatalf("now = %s, want %s", sweeper.now, now)
	}
}

func TestOrderExpirationJobWrapsSweepFailure(t *testing.T) {
	boom := errors.New("boom")
	job, err := NewOrderExpirationJob(OrderExpirationJobParams{
		Logger:     discardLogger(),
		Sweeper:    &fakeSweeper{err: boom},
		PaymentTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	if _, err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped sweep error, got %v", err)
	}
}

func TestUnverifiedUserPurgeJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	purger := &fakePurger{purged: 3}
	job, err := NewUnverifiedUserPurgeJob(UnverifiedUserPurgeJobParams{
		Logger: discardLogger(),
		Users:  purger,
		TTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	job.(*unverifiedUserPurgeJob).now = func() time.Time { return now }

	processed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if processed != 3 {
		t.Fatalf("expected 3 purged users, got %d", processed)
	}
	if want := now.Add(-24 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", purger.cutoff, want)
	}
}

func TestJobConstructorsValidate(t *testing.T) {
	if _, err := NewOrderExpirationJob(OrderExpirationJobParams{Logger: discardLogger(), Sweeper: &fakeSweeper{}}); err == nil {
		t.Fatalf("expected ttl validation error")
	}
	if _, err := NewUnverifiedUserPurgeJob(UnverifiedUserPurgeJobParams{Logger: discardLogger(), TTL: time.Hour}); err == nil {
		t.Fatalf("expected users validation error")
	}
}
