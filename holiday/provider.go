package holiday

import (
	"context"
	"fmt"

	"github.com/warp/overtime-engine/logger"
	"github.com/warp/overtime-engine/overtime"
)

// Repository is the holiday storage the provider reads and fills.
// directory.Store implements it.
type Repository interface {
	StoredHolidays(ctx context.Context, year int) ([]overtime.Holiday, error)
	ReplaceHolidays(ctx context.Context, year int, region string, hs []overtime.Holiday) error
}

// Fetcher is satisfied by *FeedClient.
type Fetcher interface {
	Fetch(ctx context.Context, year int, region string) ([]overtime.Holiday, error)
}

// Provider implements overtime.HolidaySource. It serves the stored holidays
// of a year and, the first time a year is requested for its region, fetches
// them from the feed and stores them.
type Provider struct {
	repo   Repository
	feed   Fetcher
	region string
	logger *logger.Logger
}

// NewProvider builds a provider. A nil feed serves stored holidays only.
func NewProvider(repo Repository, feed Fetcher, region string, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{repo: repo, feed: feed, region: region, logger: log.WithComponent("holidays")}
}

var _ overtime.HolidaySource = (*Provider)(nil)

func (p *Provider) HolidaysInYear(ctx context.Context, year int) ([]overtime.Holiday, error) {
	stored, err := p.repo.StoredHolidays(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", overtime.ErrHolidaySourceUnavailable, err)
	}
	if p.feed == nil || hasRegion(stored, p.region) {
		return stored, nil
	}

	if _, err := p.Refresh(ctx, year); err != nil {
		if len(stored) > 0 {
			p.logger.Warn().Err(err).Int("year", year).Msg("holiday feed unavailable, serving stored holidays")
			return stored, nil
		}
		return nil, err
	}
	return p.repo.StoredHolidays(ctx, year)
}

// Refresh re-fetches the year from the feed and replaces the stored copy for
// the provider's region.
func (p *Provider) Refresh(ctx context.Context, year int) ([]overtime.Holiday, error) {
	if p.feed == nil {
		return nil, fmt.Errorf("%w: no holiday feed configured", overtime.ErrHolidaySourceUnavailable)
	}
	fetched, err := p.feed.Fetch(ctx, year, p.region)
	if err != nil {
		return nil, err
	}
	if err := p.repo.ReplaceHolidays(ctx, year, p.region, fetched); err != nil {
		return nil, fmt.Errorf("store holidays: %w", err)
	}
	p.logger.Info().Int("year", year).Str("region", p.region).Int("count", len(fetched)).Msg("holidays refreshed")
	return fetched, nil
}

func hasRegion(hs []overtime.Holiday, region string) bool {
	for _, h := range hs {
		if h.Region == region {
			return true
		}
	}
	return false
}
