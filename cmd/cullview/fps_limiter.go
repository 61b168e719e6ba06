package main

import "time"

// FPSLimiter paces frames to a fixed rate. A limit of zero disables it.
type FPSLimiter struct {
	limit int
	next  time.Time
}

func NewFPSLimiter(limit int) *FPSLimiter {
	return &FPSLimiter{limit: limit}
}

// Target returns the frame budget, or zero when unlimited.
func (f *FPSLimiter) Target() time.Duration {
	if f.limit <= 0 {
		return 0
	}
	return time.Second / time.Duration(f.limit)
}

// Wait sleeps until the next frame is due. It sleeps most of the way and
// spins for the last few hundred microseconds.
func (f *FPSLimiter) Wait() {
	target := f.Target()
	if target == 0 {
		f.next = time.Time{}
		return
	}

	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := time.Until(f.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
	}

	// resync after a hitch instead of racing to catch up
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}
