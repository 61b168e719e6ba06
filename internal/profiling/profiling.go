package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Per-frame CPU timers for the culling passes.

// Sample is the accumulated cost of one named section in the current frame.
type Sample struct {
	Total time.Duration
	Calls int
}

var (
	mu     sync.Mutex
	frame  = make(map[string]Sample)
	frames uint64
)

// Track returns a stop function that adds the elapsed time to name.
// Usage: defer profiling.Track("spatial.Rebound")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s := frame[name]
		s.Total += d
		s.Calls++
		frame[name] = s
		mu.Unlock()
	}
}

// ResetFrame clears the totals. Call once at the start of every frame.
func ResetFrame() {
	mu.Lock()
	clear(frame)
	frames++
	mu.Unlock()
}

// Frames returns how many times ResetFrame was called.
func Frames() uint64 {
	mu.Lock()
	defer mu.Unlock()
	return frames
}

// Snapshot returns a copy of the current frame's samples.
func Snapshot() map[string]Sample {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Sample, len(frame))
	for k, v := range frame {
		out[k] = v
	}
	return out
}

// TopN formats the n most expensive sections of the current frame, e.g.
// "spatial.Cull:1.2ms(x3), spatial.Rebound:0.4ms(x1)".
func TopN(n int) string {
	ss := Snapshot()
	names := make([]string, 0, len(ss))
	for k := range ss {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := ss[names[i]], ss[names[j]]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return names[i] < names[j]
	})
	if n > len(names) {
		n = len(names)
	}
	parts := make([]string, 0, n)
	for _, name := range names[:n] {
		s := ss[name]
		ms := float64(s.Total.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms(x%d)", name, ms, s.Calls))
	}
	return strings.Join(parts, ", ")
}
