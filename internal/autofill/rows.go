package autofill

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultAddRowSelector locates the host's add-row button.
const DefaultAddRowSelector = "#btnAddRow"

// Synchronizer adds one row to the host form and waits until the host has
// materialised it.
//
// The host's row counter is shared mutable state with no locking on its side,
// so a Synchronizer must never be driven concurrently.
type Synchronizer struct {
	host     Host
	selector string
	timing   Timing
	log      *zap.Logger
}

// NewSynchronizer creates a Synchronizer that clicks the element matched by
// addSelector to request a row.
func NewSynchronizer(host Host, addSelector string, timing Timing, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if addSelector == "" {
		addSelector = DefaultAddRowSelector
	}
	return &Synchronizer{host: host, selector: addSelector, timing: timing, log: log}
}

// CurrentRow returns the highest row index the host has added. The counter
// field wins when present; otherwise the largest visible row container is used.
//
// Inference from visible containers assumes the host never deletes rows: a
// deleted trailing row makes the next expected index too low.
func (s *Synchronizer) CurrentRow(ctx context.Context) (int, error) {
	n, ok, err := s.host.MaxRow(ctx)
	if err != nil {
		s.log.Debug("row counter unreadable", zap.Error(err))
	}
	if err == nil && ok {
		return n, nil
	}

	rows, err := s.host.VisibleRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCurrentRowUnknown, err)
	}
	if len(rows) == 0 {
		return 0, ErrCurrentRowUnknown
	}
	max := rows[0]
	for _, r := range rows[1:] {
		if r > max {
			max = r
		}
	}
	return max, nil
}

// AddRow triggers creation of the next row and returns its index once the
// host confirms it. A timed-out row is not retried.
func (s *Synchronizer) AddRow(ctx context.Context) (int, error) {
	current, err := s.CurrentRow(ctx)
	if err != nil {
		return 0, err
	}
	expected := current + 1

	trigger, err := s.host.Query(ctx, s.selector)
	if errors.Is(err, ErrElementNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrAddControlNotFound, s.selector)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAddControlNotFound, err)
	}
	if err := trigger.Click(ctx); err != nil {
		return 0, fmt.Errorf("click %s: %w", s.selector, err)
	}

	err = Poll(ctx, s.timing.PollInterval, s.timing.RowTimeout, func(ctx context.Context) (bool, error) {
		if n, ok, err := s.host.MaxRow(ctx); err == nil && ok && n >= expected {
			return true, nil
		}
		return s.host.RowPresent(ctx, expected)
	})
	if errors.Is(err, ErrPollTimeout) {
		return 0, fmt.Errorf("%w: row %d: %v", ErrRowTimeout, expected, err)
	}
	if err != nil {
		return 0, err
	}

	s.log.Debug("row materialised", zap.Int("row", expected))
	if err := sleep(ctx, s.timing.RowSettle); err != nil {
		return 0, err
	}
	return expected, nil
}
