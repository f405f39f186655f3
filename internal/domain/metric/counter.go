// Package metric animates impact counters as a pure function of elapsed time.
package metric

import (
	"context"
	"math"
	"time"
)

// Counter counts from zero up to Target over Duration with a cubic ease-out.
type Counter struct {
	Target   int64
	Duration time.Duration
}

// ValueAt returns the displayed value after elapsed. It is clamped to
// [0, Target] and reaches Target exactly once elapsed >= Duration.
func (c Counter) ValueAt(elapsed time.Duration) int64 {
	if c.Target <= 0 || elapsed <= 0 {
		return 0
	}
	if c.Duration <= 0 || elapsed >= c.Duration {
		return c.Target
	}

	p := float64(elapsed) / float64(c.Duration)
	eased := 1 - math.Pow(1-p, 3)
	v := int64(math.Floor(eased * float64(c.Target)))
	if v > c.Target {
		return c.Target
	}
	return v
}

// Frame is one emitted counter value.
type Frame struct {
	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"elapsed_ms"`
	Value     int64         `json:"value"`
	Done      bool          `json:"done"`
}

// Run emits a frame for every tick until the counter reaches its target or
// ctx is cancelled. ticks carries the elapsed time since start; a single tick
// source drives every frame. emit returning false stops the run.
func (c Counter) Run(ctx context.Context, ticks <-chan time.Duration, emit func(Frame) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case elapsed, ok := <-ticks:
			if !ok {
				return nil
			}
			v := c.ValueAt(elapsed)
			done := v >= c.Target
			if !emit(Frame{Elapsed: elapsed, ElapsedMS: elapsed.Milliseconds(), Value: v, Done: done}) || done {
				return nil
			}
		}
	}
}

// Ticker adapts a time.Ticker to an elapsed-time tick source. The returned
// stop function must be called to release the ticker.
func Ticker(interval time.Duration) (<-chan time.Duration, func()) {
	out := make(chan time.Duration)
	t := time.NewTicker(interval)
	quit := make(chan struct{})
	start := time.Now()

	go func() {
		defer close(out)
		for {
			select {
			case <-quit:
				return
			case now := <-t.C:
				select {
				case out <- now.Sub(start):
				case <-quit:
					return
				}
			}
		}
	}()

	return out, func() {
		t.Stop()
		close(quit)
	}
}
