package clock

import "time"

// Clock supplies the timestamps used for all session-age and summary-gap
// comparisons. Everything that compares durations must go through the same
// Clock so that a stored turn and "now" live in the same frame of reference.
type Clock interface {
	Now() time.Time
}

// Business returns timestamps shifted into the business timezone, matching
// the timestamps written into the store. The original deployment runs on
// Malaysia time (UTC+8).
type Business struct {
	offset time.Duration
}

func NewBusiness(utcOffset time.Duration) *Business {
	return &Business{offset: utcOffset}
}

func (b *Business) Now() time.Time {
	return time.Now().UTC().Add(b.offset)
}

// Frozen is a fixed clock for tests.
type Frozen struct {
	T time.Time
}

func (f Frozen) Now() time.Time { return f.T }
