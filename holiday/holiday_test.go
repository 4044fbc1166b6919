package holiday_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/overtime-engine/directory"
	"github.com/warp/overtime-engine/holiday"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store/sqlite"
)

const feed2025 = `{
	"Neujahrstag": {"datum": "2025-01-01", "hinweis": ""},
	"Heilige Drei Könige": {"datum": "2025-01-06", "hinweis": ""},
	"Tag der Deutschen Einheit": {"datum": "2025-10-03", "hinweis": ""}
}`

func newFeedServer(t *testing.T, body string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "2025", r.URL.Query().Get("jahr"))
		assert.Equal(t, "BY", r.URL.Query().Get("nur_land"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newRepo(t *testing.T) *directory.Store {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo, err := directory.NewFromSQL(db)
	require.NoError(t, err)
	return repo
}

func TestFeedClient_Fetch(t *testing.T) {
	srv, _ := newFeedServer(t, feed2025, http.StatusOK)
	client := holiday.NewFeedClient(srv.URL, 0, nil)

	hs, err := client.Fetch(context.Background(), 2025, "BY")

	require.NoError(t, err)
	require.Len(t, hs, 3)
	assert.Equal(t, overtime.MustParseDate("2025-01-01"), hs[0].Date)
	assert.Equal(t, "Neujahrstag", hs[0].Name)
	assert.Equal(t, "BY", hs[0].Region)
	assert.Equal(t, overtime.MustParseDate("2025-10-03"), hs[2].Date)
}

func TestFeedClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"server error", `{}`, http.StatusInternalServerError},
		{"malformed json", `{"Neujahrstag":`, http.StatusOK},
		{"malformed date", `{"Neujahrstag": {"datum": "01.01.2025"}}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFeedServer(t, tt.body, tt.status)
			client := holiday.NewFeedClient(srv.URL, 0, nil)

			_, err := client.Fetch(context.Background(), 2025, "BY")

			require.Error(t, err)
			assert.ErrorIs(t, err, overtime.ErrHolidaySourceUnavailable)
		})
	}
}

func TestProvider_FetchesOnceThenServesStored(t *testing.T) {
	// GIVEN: an empty store and a working feed
	srv, calls := newFeedServer(t, feed2025, http.StatusOK)
	provider := holiday.NewProvider(newRepo(t), holiday.NewFeedClient(srv.URL, 0, nil), "BY", nil)
	ctx := context.Background()

	// WHEN: asking for the same year twice
	first, err := provider.HolidaysInYear(ctx, 2025)
	require.NoError(t, err)
	second, err := provider.HolidaysInYear(ctx, 2025)
	require.NoError(t, err)

	// THEN: the feed is hit once and both answers agree
	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestProvider_FeedDownWithoutStoredHolidays(t *testing.T) {
	srv, _ := newFeedServer(t, `{}`, http.StatusBadGateway)
	provider := holiday.NewProvider(newRepo(t), holiday.NewFeedClient(srv.URL, 0, nil), "BY", nil)

	_, err := provider.HolidaysInYear(context.Background(), 2025)

	assert.True(t, errors.Is(err, overtime.ErrHolidaySourceUnavailable))
}

func TestProvider_FeedDownServesStoredNationwide(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceHolidays(ctx, 2025, "", []overtime.Holiday{
		{Date: overtime.MustParseDate("2025-10-03"), Name: "Tag der Deutschen Einheit"},
	}))
	srv, _ := newFeedServer(t, `{}`, http.StatusBadGateway)
	provider := holiday.NewProvider(repo, holiday.NewFeedClient(srv.URL, 0, nil), "BY", nil)

	hs, err := provider.HolidaysInYear(ctx, 2025)

	require.NoError(t, err)
	assert.Len(t, hs, 1)
}

func TestProvider_WithoutFeed(t *testing.T) {
	provider := holiday.NewProvider(newRepo(t), nil, "BY", nil)
	ctx := context.Background()

	hs, err := provider.HolidaysInYear(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, hs)

	_, err = provider.Refresh(ctx, 2025)
	assert.ErrorIs(t, err, overtime.ErrHolidaySourceUnavailable)
}

func TestProvider_RefreshReplacesStored(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceHolidays(ctx, 2025, "BY", []overtime.Holiday{
		{Date: overtime.MustParseDate("2025-08-15"), Name: "Mariä Himmelfahrt"},
	}))
	srv, calls := newFeedServer(t, feed2025, http.StatusOK)
	provider := holiday.NewProvider(repo, holiday.NewFeedClient(srv.URL, 0, nil), "BY", nil)

	fetched, err := provider.Refresh(ctx, 2025)
	require.NoError(t, err)

	assert.Len(t, fetched, 3)
	stored, err := repo.StoredHolidays(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestProvider_FeedsCalendar(t *testing.T) {
	srv, _ := newFeedServer(t, feed2025, http.StatusOK)
	provider := holiday.NewProvider(newRepo(t), holiday.NewFeedClient(srv.URL, 0, nil), "BY", nil)
	cal := overtime.NewCalendar(provider, "BY", nil)

	cal.EnsureYear(context.Background(), 2025)

	assert.False(t, cal.Degraded(2025))
	assert.True(t, cal.IsHoliday(overtime.MustParseDate("2025-01-06")))
	assert.False(t, cal.IsHoliday(overtime.MustParseDate("2025-01-07")))
}
