package clock

import "time"

// Clock supplies the current instant. Workflows take it injected so tests
// can pin time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the wall clock in UTC.
func System() Clock { return systemClock{} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// FixedAt returns a Clock frozen at t.
func FixedAt(t time.Time) Clock { return fixedClock{t: t} }
