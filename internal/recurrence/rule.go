package recurrence

import (
	"fmt"
	"time"
)

// Frequency is the closed vocabulary of chore repetition kinds.
type Frequency string

const (
	AsNeeded     Frequency = "as_needed"
	OneTime      Frequency = "one_time"
	Daily        Frequency = "daily"
	EveryNDays   Frequency = "every_n_days"
	Weekly       Frequency = "weekly"
	EveryNWeeks  Frequency = "every_n_weeks"
	EveryNMonths Frequency = "every_n_months"
	Yearly       Frequency = "yearly"
)

// intervalChoices lists the allowed frequency_value per interval-bearing
// frequency.
var intervalChoices = map[Frequency][]int{
	EveryNDays:   {2, 3, 4, 5, 6, 10},
	EveryNWeeks:  {2, 3, 4, 5, 6},
	EveryNMonths: {2, 3, 6},
}

var frequencyNames = map[Frequency]string{
	AsNeeded:     "As needed",
	OneTime:      "One time",
	Daily:        "Daily",
	EveryNDays:   "Every %d days",
	Weekly:       "Weekly",
	EveryNWeeks:  "Every %d weeks",
	EveryNMonths: "Every %d months",
	Yearly:       "Yearly",
}

// Rule describes how often a chore recurs. DayOfWeek pins weekly and
// every-n-weeks patterns to a specific weekday; it is ignored for other
// frequencies.
type Rule struct {
	Frequency Frequency
	Interval  int
	DayOfWeek *time.Weekday
}

// ParseRule validates a frequency string plus its optional value and
// day-of-week (0 = Sunday) as stored on a chore.
func ParseRule(frequency string, value *int, dayOfWeek *int) (Rule, error) {
	f := Frequency(frequency)
	if _, ok := frequencyNames[f]; !ok {
		return Rule{}, fmt.Errorf("unknown frequency: %q", frequency)
	}

	r := Rule{Frequency: f, Interval: 1}

	choices, takesValue := intervalChoices[f]
	switch {
	case takesValue:
		if value == nil {
			return Rule{}, fmt.Errorf("frequency %q requires frequency_value", frequency)
		}
		if !containsInt(choices, *value) {
			return Rule{}, fmt.Errorf("frequency_value %d not allowed for %q", *value, frequency)
		}
		r.Interval = *value
	case value != nil:
		return Rule{}, fmt.Errorf("frequency %q does not take frequency_value", frequency)
	}

	if dayOfWeek != nil {
		if *dayOfWeek < 0 || *dayOfWeek > 6 {
			return Rule{}, fmt.Errorf("day_of_week %d out of range", *dayOfWeek)
		}
		wd := time.Weekday(*dayOfWeek)
		r.DayOfWeek = &wd
	}

	return r, nil
}

// Recurring reports whether the rule produces due dates at all.
func (r Rule) Recurring() bool {
	return r.Frequency != AsNeeded && r.Frequency != OneTime
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	name := frequencyNames[r.Frequency]
	if _, ok := intervalChoices[r.Frequency]; ok {
		name = fmt.Sprintf(name, r.Interval)
	}
	if r.DayOfWeek != nil && (r.Frequency == Weekly || r.Frequency == EveryNWeeks) {
		name += " on " + r.DayOfWeek.String() + "s"
	}
	return name
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
