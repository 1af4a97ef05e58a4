// =============================================================================
// Line-Item Autofill - Batch Orchestrator
// =============================================================================
//
// The public entry point of the engine. For each payload, in input order:
//
//   1. Synchronizer.AddRow  - click "add row", wait for the host to confirm it
//   2. Filler.Fill          - write the payload's fields in FillOrder
//   3. report progress, settle, move to the next payload
//
// Rows are processed strictly one at a time. The host's row counter has no
// locking of its own; two adds in flight would both compute the same
// "expected" index.
//
// =============================================================================

package autofill

import (
	"context"

	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// Options configures an Engine.
type Options struct {
	// AddRowSelector is the CSS selector of the host's add-row trigger.
	AddRowSelector string

	// FieldNames overrides entries of DefaultFieldNames by key.
	FieldNames map[string]string

	Writer WriterLayout
	Recalc RecalcLayout
	Timing Timing
}

// DefaultOptions returns options for the production host form.
func DefaultOptions() Options {
	return Options{
		AddRowSelector: DefaultAddRowSelector,
		Writer:         DefaultWriterLayout(),
		Recalc:         DefaultRecalcLayout(),
		Timing:         DefaultTiming(),
	}
}

// Outcome is the result for one payload. Row is the host row index the
// payload landed in, or 0 when the row could not be added. A row interrupted
// while filling keeps its index and carries Err.
type Outcome struct {
	Row   int
	Err   error
	Stats FillStats
}

// OK reports whether the payload was placed in a row.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Row > 0
}

// ProgressFunc observes batch progress after each payload.
type ProgressFunc func(current, total int)

// Engine drives the host form.
type Engine struct {
	sync   *Synchronizer
	filler *Filler
	timing Timing
	log    *zap.Logger
}

// New wires an Engine against host.
func New(host Host, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	writer := NewWriter(host, opts.Writer, opts.Timing, log)
	return &Engine{
		sync:   NewSynchronizer(host, opts.AddRowSelector, opts.Timing, log),
		filler: NewFiller(host, NewResolver(opts.FieldNames), writer, opts.Recalc, opts.Timing, log),
		timing: opts.Timing,
		log:    log,
	}
}

// FillBatch adds and fills one row per payload.
//
// PARAMETERS:
//   - payloads: the line items, in the order they should appear in the form.
//   - progress: optional observer, called with (done, total) after each payload.
//
// RETURNS:
//   - exactly len(payloads) outcomes in input order. A failed row is an
//     outcome with Err set; it never stops the batch.
//   - ErrNoPayloads (with no outcomes) when payloads is empty.
//
// Cancelling ctx stops further host interaction; the remaining outcomes carry
// the context error so the result length is preserved.
func (e *Engine) FillBatch(ctx context.Context, payloads []types.Payload, progress ProgressFunc) ([]Outcome, error) {
	if len(payloads) == 0 {
		e.log.Warn("fill batch called without payloads")
		return nil, ErrNoPayloads
	}

	total := len(payloads)
	outcomes := make([]Outcome, total)
	for i, p := range payloads {
		outcomes[i] = e.fillOne(ctx, i, p)
		if progress != nil {
			progress(i+1, total)
		}
		if i < total-1 {
			_ = sleep(ctx, e.timing.RowGap)
		}
	}
	return outcomes, nil
}

func (e *Engine) fillOne(ctx context.Context, i int, p types.Payload) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Err: err}
	}

	row, err := e.sync.AddRow(ctx)
	if err != nil {
		e.log.Warn("row add failed", zap.Int("payload", i), zap.Error(err))
		return Outcome{Err: err}
	}

	stats, err := e.filler.Fill(ctx, row, p)
	if err != nil {
		e.log.Warn("row fill interrupted", zap.Int("payload", i), zap.Int("row", row), zap.Error(err))
		return Outcome{Row: row, Err: err, Stats: stats}
	}

	e.log.Info("row filled", zap.Int("payload", i), zap.Int("row", row),
		zap.Int("written", stats.Written), zap.Int("failed", stats.Failed))
	return Outcome{Row: row, Stats: stats}
}
