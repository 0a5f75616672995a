package calendar_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtp/bank-admin/calendar"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestCalendar pins the late-2016 England & Wales holidays used by the
// fixtures: Boxing Day (substitute) Tue 27 Dec and Christmas (substitute)
// Mon 26 Dec.
func newTestCalendar() *calendar.Calendar {
	return calendar.New([]time.Time{
		date(2016, time.December, 26),
		date(2016, time.December, 27),
	})
}

// =============================================================================
// WORKDAY TESTS
// =============================================================================

func TestCalendar_IsWorkday(t *testing.T) {
	cal := newTestCalendar()

	assert.True(t, cal.IsWorkday(date(2016, time.September, 13)), "Tuesday is a workday")
	assert.False(t, cal.IsWorkday(date(2016, time.September, 10)), "Saturday is not a workday")
	assert.False(t, cal.IsWorkday(date(2016, time.September, 11)), "Sunday is not a workday")
	assert.False(t, cal.IsWorkday(date(2016, time.December, 26)), "bank holiday is not a workday")
}

func TestCalendar_NextWorkday_SkipsWeekend(t *testing.T) {
	cal := newTestCalendar()

	next := cal.NextWorkday(date(2016, time.September, 9)) // Friday
	assert.Equal(t, date(2016, time.September, 12), next, "next workday after Friday is Monday")
}

func TestCalendar_NextWorkday_SkipsHolidayRun(t *testing.T) {
	// GIVEN: Fri 23 Dec 2016, followed by a weekend and two bank holidays
	// WHEN: Asking for the next workday
	// THEN: Wed 28 Dec, the first day after the whole run

	cal := newTestCalendar()

	next := cal.NextWorkday(date(2016, time.December, 23))
	assert.Equal(t, date(2016, time.December, 28), next)
}

func TestCalendar_PreviousWorkday_SkipsWeekend(t *testing.T) {
	cal := newTestCalendar()

	previous := cal.PreviousWorkday(date(2016, time.September, 12)) // Monday
	assert.Equal(t, date(2016, time.September, 9), previous)
}

// =============================================================================
// RECONCILIATION PERIOD TESTS
// =============================================================================

func TestCalendar_PeriodBounds_MidweekDay(t *testing.T) {
	cal := newTestCalendar()

	start, end := cal.ReconciliationPeriodBounds(date(2016, time.September, 13)) // Tuesday
	assert.Equal(t, date(2016, time.September, 13), start)
	assert.Equal(t, date(2016, time.September, 14), end)
}

func TestCalendar_PeriodBounds_MondayCoversWeekend(t *testing.T) {
	// GIVEN: A Monday receipt date
	// WHEN: Computing the reconciliation period
	// THEN: The period runs from the preceding Friday through Monday

	cal := newTestCalendar()

	start, end := cal.ReconciliationPeriodBounds(date(2016, time.September, 12)) // Monday
	assert.Equal(t, date(2016, time.September, 9), start, "period starts on the preceding Friday")
	assert.Equal(t, date(2016, time.September, 13), end, "period ends on Tuesday")
}

func TestCalendar_PrecedingWorkdays(t *testing.T) {
	cal := newTestCalendar()

	// From Wed 14 Sep, offset 1: Tue 13, Mon 12, Fri 9
	days := cal.PrecedingWorkdays(date(2016, time.September, 14), 3, 1)
	require.Len(t, days, 3)
	assert.Equal(t, date(2016, time.September, 13), days[0])
	assert.Equal(t, date(2016, time.September, 12), days[1])
	assert.Equal(t, date(2016, time.September, 9), days[2])
}

// =============================================================================
// FEED TESTS
// =============================================================================

func TestFromFeed_LoadsHolidays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"england-and-wales": {
				"division": "england-and-wales",
				"events": [
					{"title": "Boxing Day", "date": "2016-12-26", "notes": "Substitute day"},
					{"title": "Christmas Day", "date": "2016-12-27", "notes": "Substitute day"}
				]
			}
		}`))
	}))
	t.Cleanup(server.Close)

	cal, err := calendar.FromFeed(context.Background(), server.URL)
	require.NoError(t, err)

	assert.False(t, cal.IsWorkday(date(2016, time.December, 26)))
	assert.True(t, cal.IsWorkday(date(2016, time.December, 28)))
}

func TestFromFeed_Non200_ServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	_, err := calendar.FromFeed(context.Background(), server.URL)
	assert.True(t, errors.Is(err, calendar.ErrServiceUnavailable))
}

func TestFromFeed_Unreachable_ServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	_, err := calendar.FromFeed(context.Background(), server.URL)
	assert.True(t, errors.Is(err, calendar.ErrServiceUnavailable))
}
