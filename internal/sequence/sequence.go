// Package sequence issues per-day counters for complaint display ids.
// Two creations on the same day never observe the same value.
package sequence

import "context"

// SeedFunc returns the value a day's counter starts from the first time
// that day is seen (the number of complaints already created that day).
type SeedFunc func(ctx context.Context) (int64, error)

type Sequencer interface {
	// Next atomically increments day's counter and returns the new value.
	Next(ctx context.Context, day string, seed SeedFunc) (int64, error)

	// Advance raises day's counter to at least floor. It never lowers it.
	Advance(ctx context.Context, day string, floor int64) error
}
