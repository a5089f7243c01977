// Package pace provides the headless frame clock used when the engine runs
// without a window.
package pace

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

var (
	// ErrAborted reports that the clock's context was cancelled.
	ErrAborted = errors.New("frame clock aborted")
	// ErrBudget reports that the clock handed out its last frame.
	ErrBudget = errors.New("frame budget exhausted")
)

// Clock paces frames with a token bucket. It satisfies the engine's host
// frame-clock contract.
type Clock struct {
	ctx     context.Context
	limiter *rate.Limiter
	fps     int
	budget  int
	frames  int
}

// NewClock returns a clock bound to ctx. A positive budget limits the number
// of frames handed out.
func NewClock(ctx context.Context, budget int) *Clock {
	return &Clock{
		ctx:     ctx,
		limiter: rate.NewLimiter(rate.Inf, 1),
		budget:  budget,
	}
}

// Pace blocks until the next frame at fps may start. Zero fps does not wait.
func (c *Clock) Pace(fps int) error {
	if err := c.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	if c.budget > 0 && c.frames >= c.budget {
		return fmt.Errorf("%w after %d frames", ErrBudget, c.frames)
	}

	if fps != c.fps {
		c.fps = fps
		c.limiter.SetLimit(Limit(fps))
	}
	if err := c.limiter.Wait(c.ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	c.frames++
	return nil
}

// Frames returns how many frames the clock has handed out.
func (c *Clock) Frames() int {
	return c.frames
}

// Limit converts a frame rate into a limiter rate. Non-positive rates are
// unthrottled.
func Limit(fps int) rate.Limit {
	if fps <= 0 {
		return rate.Inf
	}
	return rate.Limit(fps)
}
