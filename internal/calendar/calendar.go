// Package calendar computes the boundary timestamps at which samples exist.
//
// Boundaries are aligned to a fixed start (the asset's inception) and spaced
// by exactly one interval duration. A boundary b closes the period that ends
// at b; anything after the last boundary at or before "now" is still open and
// never emitted.
package calendar

import (
	"fmt"
	"time"

	"btc-data/internal/model"
)

// AlignmentError reports a request that does not map onto closed boundaries.
type AlignmentError struct {
	Interval model.Interval
	Start    time.Time
	At       time.Time
	Reason   string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("calendar: %s at %s (first boundary %s): %s",
		e.Interval, e.At.UTC().Format(time.RFC3339), e.Start.UTC().Format(time.RFC3339), e.Reason)
}

// Count returns floor((end-start)/d)+1, or 0 when end precedes start or iv is unknown.
func Count(iv model.Interval, start, end time.Time) int {
	d := iv.Duration()
	if d <= 0 || end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/d) + 1
}

// Boundary returns the i-th boundary after start.
func Boundary(iv model.Interval, start time.Time, i int) time.Time {
	return start.Add(time.Duration(i) * iv.Duration()).UTC()
}

// Boundaries lists every closed boundary in [start, end]. An end that is not
// itself on a boundary is truncated to the last boundary at or before it.
func Boundaries(iv model.Interval, start, end time.Time) ([]time.Time, error) {
	if !iv.Valid() {
		return nil, fmt.Errorf("calendar: unsupported interval %q", iv)
	}
	if end.Before(start) {
		return nil, &AlignmentError{Interval: iv, Start: start, At: end, Reason: "end precedes the first boundary"}
	}
	n := Count(iv, start, end)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = Boundary(iv, start, i)
	}
	return out, nil
}

// LastClosed returns the most recent boundary at or before t.
func LastClosed(iv model.Interval, start, t time.Time) (time.Time, error) {
	if !iv.Valid() {
		return time.Time{}, fmt.Errorf("calendar: unsupported interval %q", iv)
	}
	if t.Before(start) {
		return time.Time{}, &AlignmentError{Interval: iv, Start: start, At: t, Reason: "no boundary has closed yet"}
	}
	return Boundary(iv, start, Count(iv, start, t)-1), nil
}

// Window is an inclusive span of boundaries [First, Last].
type Window struct {
	Interval model.Interval
	First    time.Time
	Last     time.Time
}

// Len is the number of boundaries in the window.
func (w Window) Len() int {
	return Count(w.Interval, w.First, w.Last)
}

// ClosedWindow is the single newly closed period as seen at time t.
func ClosedWindow(iv model.Interval, start, t time.Time) (Window, error) {
	b, err := LastClosed(iv, start, t)
	if err != nil {
		return Window{}, err
	}
	return Window{Interval: iv, First: b, Last: b}, nil
}

// ExpectOne fails unless w covers exactly one boundary aligned to start.
func ExpectOne(w Window, start time.Time) error {
	d := w.Interval.Duration()
	if d <= 0 {
		return fmt.Errorf("calendar: unsupported interval %q", w.Interval)
	}
	if w.First.Before(start) {
		return &AlignmentError{Interval: w.Interval, Start: start, At: w.First, Reason: "window starts before the first boundary"}
	}
	if w.First.Sub(start)%d != 0 {
		return &AlignmentError{Interval: w.Interval, Start: start, At: w.First, Reason: "window is not on a boundary"}
	}
	if n := w.Len(); n != 1 {
		return &AlignmentError{Interval: w.Interval, Start: start, At: w.Last, Reason: fmt.Sprintf("window spans %d boundaries, want 1", n)}
	}
	return nil
}
