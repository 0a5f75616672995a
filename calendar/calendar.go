/*
Package calendar computes business days against a bank-holiday calendar.

PURPOSE:
  Every reconciliation window in this service is workday-aware: weekends and
  public holidays have no windows of their own and collapse into the
  neighbouring business day. This package owns that arithmetic.

HOLIDAY SOURCE:
  Holidays are loaded once, at construction, from the public bank-holiday
  JSON feed for one jurisdiction. If the feed is unreachable or returns a
  non-200 status, construction fails with ErrServiceUnavailable - no window
  can be safely computed without the holiday set, so this is a hard failure.

DATE HANDLING:
  All methods operate on calendar dates; callers pass times whose clock
  component is ignored. The workday walks are unbounded linear scans, which
  is fine in practice - holiday runs are never more than a few days long.

SEE ALSO:
  - reconcile/: turns receipt dates into [start, end) instant windows
*/
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultFeedURL is the public bank-holiday feed for England and Wales.
const DefaultFeedURL = "https://www.gov.uk/bank-holidays.json"

const feedDivision = "england-and-wales"

const feedTimeout = 15 * time.Second

// ErrServiceUnavailable is returned when the holiday feed cannot be loaded.
var ErrServiceUnavailable = errors.New("holiday calendar service unavailable")

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar answers workday questions for one jurisdiction. Immutable once
// constructed.
type Calendar struct {
	holidays map[string]struct{} // keyed by yyyy-mm-dd
}

// New builds a calendar from an explicit holiday list. Used by tests and by
// deployments that pin the holiday set.
func New(holidays []time.Time) *Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[dayKey(h)] = struct{}{}
	}
	return &Calendar{holidays: set}
}

// FromFeed fetches the holiday feed and builds a calendar from the
// england-and-wales events. Non-200 responses and transport failures wrap
// ErrServiceUnavailable.
func FromFeed(ctx context.Context, feedURL string) (*Calendar, error) {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}

	client := &http.Client{Timeout: feedTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed returned status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var feed map[string]struct {
		Events []struct {
			Title string `json:"title"`
			Date  string `json:"date"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: decoding feed: %v", ErrServiceUnavailable, err)
	}

	division, ok := feed[feedDivision]
	if !ok {
		return nil, fmt.Errorf("%w: feed has no %s division", ErrServiceUnavailable, feedDivision)
	}

	holidays := make([]time.Time, 0, len(division.Events))
	for _, event := range division.Events {
		day, err := time.Parse("2006-01-02", event.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad holiday date %q", ErrServiceUnavailable, event.Date)
		}
		holidays = append(holidays, day)
	}
	return New(holidays), nil
}

// =============================================================================
// WORKDAY ARITHMETIC
// =============================================================================

// IsWorkday reports whether date is a Monday-Friday that is not a holiday.
func (c *Calendar) IsWorkday(date time.Time) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[dayKey(date)]
	return !holiday
}

// NextWorkday returns the first workday strictly after date.
func (c *Calendar) NextWorkday(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for !c.IsWorkday(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PreviousWorkday returns the last workday strictly before date.
func (c *Calendar) PreviousWorkday(date time.Time) time.Time {
	previous := date.AddDate(0, 0, -1)
	for !c.IsWorkday(previous) {
		previous = previous.AddDate(0, 0, -1)
	}
	return previous
}

// ReconciliationPeriodBounds returns the [start, end) date range of the
// reconciliation period containing date. The end is the next workday after
// date. When the days immediately before date are workday-free (a weekend or
// holiday run), the period starts at the preceding workday so those free
// days are covered by a single period - a Monday's period runs from the
// preceding Friday through Monday.
func (c *Calendar) ReconciliationPeriodBounds(date time.Time) (time.Time, time.Time) {
	start := date
	if !c.IsWorkday(date.AddDate(0, 0, -1)) {
		start = c.PreviousWorkday(date)
	}
	return start, c.NextWorkday(date)
}

// PrecedingWorkdays lists n workdays in descending order, the first being
// offset workdays before today. Drives the dashboard's recent-day lists.
func (c *Calendar) PrecedingWorkdays(today time.Time, n, offset int) []time.Time {
	day := today
	for i := 0; i < offset; i++ {
		day = c.PreviousWorkday(day)
	}
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, day)
		day = c.PreviousWorkday(day)
	}
	return days
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
