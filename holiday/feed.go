// Package holiday fetches public holidays from an HTTP feed and keeps them
// stored in the directory so the engine can resolve holidays offline.
package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/warp/overtime-engine/logger"
	"github.com/warp/overtime-engine/overtime"
)

// FeedClient reads the feiertage-api format:
//
//	GET <base>?jahr=2025&nur_land=BY
//	{"Neujahrstag": {"datum": "2025-01-01", "hinweis": ""}, ...}
type FeedClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewFeedClient(baseURL string, timeout time.Duration, log *logger.Logger) *FeedClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FeedClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

type feedEntry struct {
	Datum   string `json:"datum"`
	Hinweis string `json:"hinweis"`
}

// Fetch returns the holidays of year for region, sorted by date. An empty
// region asks for the nationwide list. Every failure wraps
// overtime.ErrHolidaySourceUnavailable.
func (c *FeedClient) Fetch(ctx context.Context, year int, region string) ([]overtime.Holiday, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid feed url: %v", overtime.ErrHolidaySourceUnavailable, err)
	}
	q := u.Query()
	q.Set("jahr", strconv.Itoa(year))
	if region != "" {
		q.Set("nur_land", region)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", overtime.ErrHolidaySourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Int("year", year).Str("region", region).Msg("fetching holidays")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", overtime.ErrHolidaySourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed returned status %d", overtime.ErrHolidaySourceUnavailable, resp.StatusCode)
	}

	var payload map[string]feedEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode feed: %v", overtime.ErrHolidaySourceUnavailable, err)
	}

	holidays := make([]overtime.Holiday, 0, len(payload))
	for name, entry := range payload {
		d, err := overtime.ParseDate(entry.Datum)
		if err != nil {
			return nil, fmt.Errorf("%w: holiday %q: %v", overtime.ErrHolidaySourceUnavailable, name, err)
		}
		if d.Year() != year {
			continue
		}
		holidays = append(holidays, overtime.Holiday{Date: d, Name: name, Region: region})
	}
	sort.Slice(holidays, func(i, j int) bool {
		if !holidays[i].Date.Equal(holidays[j].Date) {
			return holidays[i].Date.Before(holidays[j].Date)
		}
		return holidays[i].Name < holidays[j].Name
	})

	c.logger.Info().Int("year", year).Str("region", region).Int("count", len(holidays)).Msg("holidays fetched")
	return holidays, nil
}
