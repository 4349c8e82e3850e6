// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package energy

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Validation messages returned to API callers unchanged.
const (
	ErrMsgEndBeforeStart      = "end time can't be before start time"
	ErrMsgIntervalNotPositive = "end time can't be negative"
)

// Interval is the half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Duration of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Intervals lazily yields contiguous, disjoint intervals covering a range.
// The last interval is shorter when the range does not divide evenly.
type Intervals struct {
	end  time.Time
	step time.Duration
	next time.Time
}

// Partition splits [start, end) into intervals of intervalMinutes minutes.
func Partition(start, end time.Time, intervalMinutes int) (*Intervals, error) {
	if !end.After(start) {
		return nil, &apperrors.ValidationError{Value: end, Reason: ErrMsgEndBeforeStart}
	}
	if intervalMinutes <= 0 {
		return nil, &apperrors.ValidationError{Value: intervalMinutes, Reason: ErrMsgIntervalNotPositive}
	}

	// An interval longer than the range covers it in one step. Converting
	// only after the comparison keeps the Duration from overflowing.
	span := end.Sub(start)
	step := span
	if int64(intervalMinutes) <= int64(span/time.Minute) {
		step = time.Duration(intervalMinutes) * time.Minute
	}
	return &Intervals{end: end, step: step, next: start}, nil
}

// Next returns the next interval, or false once the range is exhausted.
func (it *Intervals) Next() (Interval, bool) {
	if !it.next.Before(it.end) {
		return Interval{}, false
	}
	e := it.next.Add(it.step)
	if e.After(it.end) || !e.After(it.next) {
		e = it.end
	}
	iv := Interval{Start: it.next, End: e}
	it.next = e
	return iv, true
}

// All drains the remaining intervals into a slice.
func (it *Intervals) All() []Interval {
	var out []Interval
	for iv, ok := it.Next(); ok; iv, ok = it.Next() {
		out = append(out, iv)
	}
	return out
}

// ParseInterval parses an interval length in whole minutes as given in a query string.
func ParseInterval(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &apperrors.ValidationError{Field: "interval", Value: s, Reason: "interval must be a whole number of minutes", Details: err}
	}
	return n, nil
}
