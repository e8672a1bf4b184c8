package recurrence

import "time"

// DueStatus is the result of evaluating a rule at a point in time.
// NextDueAt is nil for as-needed and one-time chores.
type DueStatus struct {
	NextDueAt *time.Time
	Overdue   bool
}

// DueStatus computes when the chore is next due and whether it is overdue.
// The anchor is the last completion; a chore that has never been completed
// is due at its start date. Pure and deterministic: same inputs always
// produce the same output.
func (r Rule) DueStatus(startDate time.Time, lastCompletedAt *time.Time, now time.Time) DueStatus {
	if !r.Recurring() {
		return DueStatus{}
	}

	var next time.Time
	if lastCompletedAt == nil {
		next = startDate
	} else {
		anchor := *lastCompletedAt
		switch r.Frequency {
		case Daily:
			next = anchor.AddDate(0, 0, 1)
		case EveryNDays:
			next = anchor.AddDate(0, 0, r.Interval)
		case Weekly:
			next = anchor.AddDate(0, 0, 7)
		case EveryNWeeks:
			next = anchor.AddDate(0, 0, 7*r.Interval)
		case EveryNMonths:
			next = addMonthsClamped(anchor, r.Interval)
		case Yearly:
			next = addMonthsClamped(anchor, 12)
		}
	}

	// Pin weekly patterns to their weekday, always moving forward. A date
	// already on the pinned weekday stands.
	if r.DayOfWeek != nil && (r.Frequency == Weekly || r.Frequency == EveryNWeeks) {
		next = advanceToWeekday(next, *r.DayOfWeek)
	}

	return DueStatus{NextDueAt: &next, Overdue: now.After(next)}
}

// addMonthsClamped adds calendar months, clamping the day of month to the
// last valid day when the target month is shorter (Jan 31 + 1 month is
// Feb 28, not Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), 0, t.Location())

	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func advanceToWeekday(t time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
