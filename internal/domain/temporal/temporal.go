// Package temporal resolves records against point-in-time queries.
package temporal

import (
	"time"

	"github.com/okian/relmap/internal/domain/model"
)

// Clock supplies "now" so that open-ended ("present") ranges resolve at
// evaluation time instead of being cached across long-lived sessions.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Test helper.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// Mode selects how a year query bounds a record's range.
type Mode string

// Temporal query modes.
const (
	// ModeActive includes a record only while the query year falls inside
	// its start/end window.
	ModeActive Mode = "active"
	// ModeCumulative includes every record whose start year has been
	// reached, whether or not it has since ended.
	ModeCumulative Mode = "cumulative"
)

// Query is a resolved time query.
type Query struct {
	AllTime bool
	Year    int
	Mode    Mode
}

// Result is the outcome of evaluating one record against a query.
type Result struct {
	Included bool
	Status   model.Status
	// MissingYears is set when a year-bounded query excluded the record
	// because it has no start year.
	MissingYears bool
}

// EffectiveEnd resolves a range's end year: the explicit end, the clock's
// current year for open ranges, or the start year when no end is recorded.
func EffectiveEnd(r model.YearRange, clock Clock) int {
	switch {
	case r.Present:
		return clock.Now().Year()
	case r.End > 0:
		return r.End
	default:
		return r.Start
	}
}

// Evaluate resolves a record's year range and status hint against a query.
// Status under a year query is always recomputed from the range so that a
// record shown at an earlier point on the timeline carries the status it
// had then, not the one it has now.
func Evaluate(years model.YearRange, hint model.Status, q Query, clock Clock) Result {
	if q.AllTime {
		return Result{Included: true, Status: allTimeStatus(years, hint, clock)}
	}

	if !years.HasStart() {
		return Result{Included: false, MissingYears: true}
	}

	end := EffectiveEnd(years, clock)
	var included bool
	switch q.Mode {
	case ModeCumulative:
		included = years.Start <= q.Year
	default:
		included = years.Start <= q.Year && q.Year <= end
	}
	if !included {
		return Result{}
	}

	status := model.StatusCurrent
	if end < q.Year {
		status = model.StatusPast
	}
	return Result{Included: true, Status: status}
}

func allTimeStatus(years model.YearRange, hint model.Status, clock Clock) model.Status {
	if hint != "" {
		return hint
	}
	if years.HasStart() && EffectiveEnd(years, clock) < clock.Now().Year() {
		return model.StatusPast
	}
	return model.StatusCurrent
}

// ObservedRange returns the minimum and maximum years present across the
// records' ranges, resolving "present" through the clock. ok is false when
// no record carries a usable start year.
func ObservedRange(records []model.Record, clock Clock) (minYear, maxYear int, ok bool) {
	for _, rec := range records {
		if !rec.Years.HasStart() {
			continue
		}
		end := EffectiveEnd(rec.Years, clock)
		if !ok {
			minYear, maxYear, ok = rec.Years.Start, end, true
			continue
		}
		if rec.Years.Start < minYear {
			minYear = rec.Years.Start
		}
		if end > maxYear {
			maxYear = end
		}
	}
	return minYear, maxYear, ok
}
