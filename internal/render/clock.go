package render

import (
	"context"
	"fmt"
	"time"
)

// Clock provides the "wait for the next paint opportunity" primitive used by deferred
// rendering.
type Clock interface {
	// Next blocks until the next tick or until ctx is done.
	Next(ctx context.Context) error
}

// Immediate never waits. Headless exports and tests render every forwarded frame at once.
var Immediate Clock = immediate{}

type immediate struct{}

func (immediate) Next(ctx context.Context) error { return ctx.Err() }

// TickerClock ticks at a fixed frame rate.
type TickerClock struct {
	ticker *time.Ticker
}

func NewTickerClock(fps int) (*TickerClock, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFPS, fps)
	}
	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}, nil
}

func (c *TickerClock) Next(ctx context.Context) error {
	select {
	case <-c.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop releases the underlying ticker.
func (c *TickerClock) Stop() { c.ticker.Stop() }

// PulseClock ticks whenever its host event loop calls Tick. A tick with nobody waiting is
// kept until the next Next call; further ticks in the meantime are dropped.
type PulseClock struct {
	pulses chan struct{}
}

func NewPulseClock() *PulseClock {
	return &PulseClock{pulses: make(chan struct{}, 1)}
}

// Tick releases one pending or future Next call. It never blocks.
func (c *PulseClock) Tick() {
	select {
	case c.pulses <- struct{}{}:
	default:
	}
}

func (c *PulseClock) Next(ctx context.Context) error {
	select {
	case <-c.pulses:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
