// Package correlation holds the temporal and keyed grouping primitives used by
// detection rules.
package correlation

import "time"

// Window describes the densest span found by Densest. Start and End are
// inclusive indexes into the input sequence.
type Window struct {
	Count int
	Start int
	End   int
}

// MaxCountInWindow returns the largest number of timestamps that fit inside any
// closed window of the given duration. The input must already be sorted
// ascending; it is not re-sorted or checked.
func MaxCountInWindow(sorted []time.Time, window time.Duration) int {
	return Densest(sorted, window).Count
}

// Densest runs a two-pointer sweep over sorted and reports the first window
// holding the maximum count. The left pointer only moves forward, so the sweep
// is linear in len(sorted). An empty input yields a zero Window.
func Densest(sorted []time.Time, window time.Duration) Window {
	var best Window
	left := 0
	for right, current := range sorted {
		lower := current.Add(-window)
		for sorted[left].Before(lower) {
			left++
		}
		if n := right - left + 1; n > best.Count {
			best = Window{Count: n, Start: left, End: right}
		}
	}
	return best
}
