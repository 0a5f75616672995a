/*
Package reconcile resolves workday-aware reconciliation windows.

PURPOSE:
  A receipt date maps to a half-open instant window [midnight(date),
  midnight(next workday)). Weekends and holidays have no windows of their
  own: a Friday's window runs through to Monday morning. Resolving a window
  also locks it upstream - one reconcile call per calendar day, in ascending
  order, because the upstream lock is day-local.

EARLY RECONCILIATION GUARD:
  A window may only be resolved once it has fully elapsed. The guard runs
  before any upstream call, so an early request performs zero mutations.
  Locking is irreversible from this side.

SEE ALSO:
  - calendar/: workday arithmetic
  - upstream/: the per-day reconcile call
*/
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/mtp/bank-admin/calendar"
	"github.com/mtp/bank-admin/upstream"
)

// ErrEarlyReconciliation is returned when the requested window has not
// fully elapsed. The API layer maps it to a "try again next working day"
// message.
var ErrEarlyReconciliation = errors.New("reconciliation window has not fully elapsed")

// Resolver computes and locks reconciliation windows.
type Resolver struct {
	Client   *upstream.Client
	Calendar *calendar.Calendar

	// Now is the clock used by the early-reconciliation guard. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time
}

// WindowFor computes the [start, end) window for a receipt date without
// touching the upstream API.
func (r *Resolver) WindowFor(receiptDate time.Time) (time.Time, time.Time) {
	start := midnight(receiptDate)
	end := midnight(r.Calendar.NextWorkday(receiptDate))
	return start, end
}

// ForDate computes the window for a receipt date, asserts it has elapsed,
// and locks each calendar day within it upstream. Returns the overall
// window bounds for the retrieval calls that follow.
func (r *Resolver) ForDate(ctx context.Context, receiptDate time.Time) (time.Time, time.Time, error) {
	start, end := r.WindowFor(receiptDate)
	return r.lock(ctx, start, end)
}

// ForPeriod locks an explicit [startDay, endDay) period instead of deriving
// the end from the start day. Callers working with collapsed multi-day
// periods must use this: deriving the end from the start would truncate the
// period at the start day's own next workday.
func (r *Resolver) ForPeriod(ctx context.Context, startDay, endDay time.Time) (time.Time, time.Time, error) {
	return r.lock(ctx, midnight(startDay), midnight(endDay))
}

func (r *Resolver) lock(ctx context.Context, start, end time.Time) (time.Time, time.Time, error) {
	today := midnight(r.now())
	if !start.Before(today) || end.After(today) {
		return time.Time{}, time.Time{}, ErrEarlyReconciliation
	}

	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if err := r.Client.Reconcile(ctx, day); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
