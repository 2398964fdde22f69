// Package sequence provides process-wide monotonic ID generators. Request,
// certificate, and transfer IDs all start at 1 so that 0 can serve as the
// "does not exist" sentinel.
package sequence

import "sync/atomic"

// Sequence hands out strictly increasing uint64 values starting at 1.
type Sequence struct {
	last atomic.Uint64
}

// New returns a sequence whose first Next call yields 1.
func New() *Sequence {
	return &Sequence{}
}

// Next returns the next value in the sequence.
func (s *Sequence) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last value handed out, 0 if none.
func (s *Sequence) Current() uint64 {
	return s.last.Load()
}
