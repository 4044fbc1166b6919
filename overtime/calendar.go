package overtime

import (
	"context"
	"sync"

	"github.com/warp/overtime-engine/logger"
)

// =============================================================================
// CALENDAR - Holiday/weekend resolver scoped to one engine operation
// =============================================================================

// DayInfo describes a calendar day independent of any employee.
type DayInfo struct {
	Date        Date
	IsHoliday   bool
	IsWeekend   bool
	HolidayName string
}

// Calendar resolves holidays for one region. It is created per operation and
// never shared between engine calls, so tests can inject any holiday set.
// Years must be loaded with EnsureYear before Resolve sees their holidays.
type Calendar struct {
	source HolidaySource
	region string
	log    *logger.Logger

	mu       sync.RWMutex
	loaded   map[int]bool
	degraded map[int]bool
	holidays map[Date]Holiday
}

func NewCalendar(source HolidaySource, region string, log *logger.Logger) *Calendar {
	if log == nil {
		log = logger.Nop()
	}
	return &Calendar{
		source:   source,
		region:   region,
		log:      log.WithComponent("calendar"),
		loaded:   make(map[int]bool),
		degraded: make(map[int]bool),
		holidays: make(map[Date]Holiday),
	}
}

// EnsureYear loads the holidays of year once. A failing source does not fail
// the call: the year is marked degraded and treated as having no holidays.
func (c *Calendar) EnsureYear(ctx context.Context, year int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded[year] {
		return
	}
	c.loaded[year] = true
	if c.source == nil {
		return
	}

	holidays, err := c.source.HolidaysInYear(ctx, year)
	if err != nil {
		c.degraded[year] = true
		c.log.Warn().Err(err).Int("year", year).
			Msg("holiday source unavailable, treating year as having no holidays")
		return
	}

	for _, h := range holidays {
		if h.Date.Year() != year || !c.applies(h) {
			continue
		}
		c.holidays[h.Date] = h
	}
}

// EnsurePeriod loads every year p touches.
func (c *Calendar) EnsurePeriod(ctx context.Context, p Period) {
	for _, y := range p.Years() {
		c.EnsureYear(ctx, y)
	}
}

func (c *Calendar) applies(h Holiday) bool {
	return h.Region == "" || c.region == "" || h.Region == c.region
}

// Resolve reports whether d is a holiday or a weekend.
func (c *Calendar) Resolve(d Date) DayInfo {
	info := DayInfo{Date: d, IsWeekend: d.IsWeekend()}
	if c == nil {
		return info
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded[d.Year()] {
		c.log.Debug().Str("date", d.String()).Msg("holiday year not loaded")
	}
	if h, ok := c.holidays[d]; ok {
		info.IsHoliday = true
		info.HolidayName = h.Name
	}
	return info
}

func (c *Calendar) IsHoliday(d Date) bool { return c.Resolve(d).IsHoliday }

// Degraded reports whether year was loaded without holiday data.
func (c *Calendar) Degraded(year int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded[year]
}

// Holidays returns the loaded holidays within p in date order.
func (c *Calendar) Holidays(p Period) []Holiday {
	var out []Holiday
	for _, d := range p.Days() {
		c.mu.RLock()
		h, ok := c.holidays[d]
		c.mu.RUnlock()
		if ok {
			out = append(out, h)
		}
	}
	return out
}

// =============================================================================
// STATIC HOLIDAYS - Fixed table source
// =============================================================================

// StaticHolidays is a HolidaySource backed by a fixed list.
type StaticHolidays []Holiday

func (s StaticHolidays) HolidaysInYear(_ context.Context, year int) ([]Holiday, error) {
	var out []Holiday
	for _, h := range s {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out, nil
}
