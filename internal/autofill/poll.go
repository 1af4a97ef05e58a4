package autofill

import (
	"context"
	"fmt"
	"time"
)

// Timing holds every wait the engine performs. All suspension in a batch
// happens at these points.
type Timing struct {
	// PollInterval and RowTimeout bound the wait for a new row to appear.
	PollInterval time.Duration
	RowTimeout   time.Duration

	// RowSettle lets the host's row-initialisation handlers finish before
	// fields are written.
	RowSettle time.Duration

	// FieldDelay separates consecutive field writes within a row.
	FieldDelay time.Duration

	// KeyDelay separates simulated keystrokes.
	KeyDelay time.Duration

	// RowGap separates consecutive rows in a batch.
	RowGap time.Duration

	// SuggestBlur is the pause between focus and blur on smart-suggest fields.
	SuggestBlur time.Duration

	// SimulateTyping enables character-by-character typing on ordinary inputs.
	// When false the value is assigned directly and input+change are fired.
	SimulateTyping bool
}

// DefaultTiming returns the timings used against the production host form.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:   50 * time.Millisecond,
		RowTimeout:     8000 * time.Millisecond,
		RowSettle:      300 * time.Millisecond,
		FieldDelay:     60 * time.Millisecond,
		KeyDelay:       15 * time.Millisecond,
		RowGap:         200 * time.Millisecond,
		SuggestBlur:    100 * time.Millisecond,
		SimulateTyping: true,
	}
}

// Predicate is polled until it reports true.
type Predicate func(ctx context.Context) (bool, error)

// Poll evaluates cond every interval until it holds or timeout elapses. A
// predicate error counts as "not yet"; the last one is reported on timeout.
func Poll(ctx context.Context, interval, timeout time.Duration, cond Predicate) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return fmt.Errorf("%w after %s (last error: %v)", ErrPollTimeout, timeout, lastErr)
			}
			return fmt.Errorf("%w after %s", ErrPollTimeout, timeout)
		case <-ticker.C:
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
