package money

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultRatesTTL   = 24 * time.Hour
	refreshRetryDelay = time.Minute
	fetchKey          = "rates"
)

// RateProvider fetches the current rate table from an external source.
type RateProvider interface {
	FetchRates(ctx context.Context) (*RateTable, error)
}

// RateCache shares fetched tables between processes.
type RateCache interface {
	Load(ctx context.Context) (*RateTable, error)
	Store(ctx context.Context, table *RateTable, ttl time.Duration) error
}

// ConverterParams configure a Converter.
type ConverterParams struct {
	Provider RateProvider
	Cache    RateCache
	Logger   *logger.Logger
	TTL      time.Duration
}

// Converter converts amounts using a rate table cached for TTL. A failed
// refresh keeps serving the previous table.
type Converter struct {
	provider RateProvider
	cache    RateCache
	logg     *logger.Logger
	ttl      time.Duration
	now      func() time.Time

	mu          sync.RWMutex
	table       *RateTable
	lastFailure time.Time
	group       singleflight.Group
}

// NewConverter builds a Converter.
func NewConverter(params ConverterParams) (*Converter, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultRatesTTL
	}
	return &Converter{
		provider: params.Provider,
		cache:    params.Cache,
		logg:     params.Logger,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Convert returns amount unchanged when from == to, otherwise converts through
// the cached rate table.
func (c *Converter) Convert(ctx context.Context, amount int64, from, to enums.Currency) (int64, error) {
	if from == to {
		return amount, nil
	}
	table, err := c.Rates(ctx)
	if err != nil {
		return 0, err
	}
	return table.Convert(amount, from, to)
}

// Rates returns a fresh table, refreshing it when the cached one expired.
func (c *Converter) Rates(ctx context.Context) (*RateTable, error) {
	if table := c.current(); table.Fresh(c.now(), c.ttl) {
		return table, nil
	}
	result, err, _ := c.group.Do(fetchKey, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*RateTable), nil
}

func (c *Converter) current() *RateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

func (c *Converter) setCurrent(table *RateTable) {
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()
}

func (c *Converter) recentlyFailed(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastFailure.IsZero() && now.Sub(c.lastFailure) < refreshRetryDelay
}

func (c *Converter) markFailure(now time.Time) {
	c.mu.Lock()
	c.lastFailure = now
	c.mu.Unlock()
}

func (c *Converter) refresh(ctx context.Context) (*RateTable, error) {
	now := c.now()
	previous := c.current()
	if previous.Fresh(now, c.ttl) {
		return previous, nil
	}
	if previous != nil && c.recentlyFailed(now) {
		return previous, nil
	}

	if c.cache != nil {
		shared, err := c.cache.Load(ctx)
		if err != nil {
			c.logg.Warn(ctx, fmt.Sprintf("rate cache load failed: %v", err))
		} else if shared.Fresh(now, c.ttl) {
			c.setCurrent(shared)
			return shared, nil
		}
	}

	fetched, err := c.provider.FetchRates(ctx)
	if err == nil && (fetched == nil || len(fetched.Rates) == 0) {
		err = fmt.Errorf("rate provider returned an empty table")
	}
	if err != nil {
		c.markFailure(now)
		if previous != nil {
			c.logg.Warn(ctx, fmt.Sprintf("rate refresh failed, keeping table from %s: %v", previous.FetchedAt.Format(time.RFC3339), err))
			return previous, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeRatesUnavailable, err, "fetch exchange rates")
	}
	if fetched.FetchedAt.IsZero() {
		fetched.FetchedAt = now
	}
	c.setCurrent(fetched)

	if c.cache != nil {
		if err := c.cache.Store(ctx, fetched, c.ttl); err != nil {
			c.logg.Warn(ctx, fmt.Sprintf("rate cache store failed: %v", err))
		}
	}
	return fetched, nil
}
