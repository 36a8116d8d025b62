package eligibility

import "time"

// Evaluate classifies a promotion as eligible or not at the given instant.
//
// Pure and total: no I/O, never fails, identical inputs always give the
// identical result. The instant's location is authoritative; callers decide
// the reference timezone before calling. Checks short-circuit in order:
// active flag, date window, time window, day of week.
//
// A half-configured dimension (only one of the date or time bounds set) is
// treated as absent rather than rejected; input validation keeps such
// rule-sets out of the store in the first place.
func Evaluate(p Promotion, at time.Time) Result {
	if !p.IsActive {
		return Result{Reason: ReasonInactive}
	}

	if p.ValidFrom != nil && p.ValidTo != nil {
		today := DateOf(at)
		if p.ValidFrom.Compare(today) > 0 || p.ValidTo.Compare(today) < 0 {
			return Result{Reason: ReasonDateWindow}
		}
	}

	if p.StartTime != nil && p.EndTime != nil {
		// Inclusive on both ends. A window with start > end never
		// matches; windows do not wrap past midnight.
		clock := TimeOfDayOf(at)
		if clock < *p.StartTime || clock > *p.EndTime {
			return Result{Reason: ReasonTimeWindow}
		}
	}

	if len(p.Days) > 0 {
		wd := at.Weekday()
		found := false
		for _, d := range p.Days {
			if d == wd {
				found = true
				break
			}
		}
		if !found {
			return Result{Reason: ReasonDayOfWeek}
		}
	}

	return Result{Eligible: true}
}

// EligibleAt filters promotions down to the ones eligible at the instant,
// preserving input order.
func EligibleAt(promos []Promotion, at time.Time) []Promotion {
	var out []Promotion
	for _, p := range promos {
		if Evaluate(p, at).Eligible {
			out = append(out, p)
		}
	}
	return out
}
