package finder

// Clock is a monotonic logical clock that stamps each successful
// resolution. The stamps give the order in which aliases were resolved,
// which is how dependency ordering is observed and reported.
//
// Clock is not safe for concurrent use; a Context is single-threaded.
type Clock struct {
	seq int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq
}
