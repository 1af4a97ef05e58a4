package autofill

import (
	"context"

	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// RecalcLayout names the host's recalculation hook and the field classes it is
// run for once a row is complete.
type RecalcLayout struct {
	Hook    string
	Classes []string
}

// DefaultRecalcLayout matches the production host form.
func DefaultRecalcLayout() RecalcLayout {
	return RecalcLayout{Hook: "decimalFix", Classes: []string{"numeric", "text"}}
}

// FillStats counts what happened to a row's fields.
type FillStats struct {
	Written  int
	Unmapped int
	Failed   int
}

// Filler writes one payload into one row, in types.FillOrder.
type Filler struct {
	host     Host
	resolver *Resolver
	writer   *Writer
	recalc   RecalcLayout
	timing   Timing
	log      *zap.Logger
}

// NewFiller creates a Filler.
func NewFiller(host Host, resolver *Resolver, writer *Writer, recalc RecalcLayout, timing Timing, log *zap.Logger) *Filler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filler{host: host, resolver: resolver, writer: writer, recalc: recalc, timing: timing, log: log}
}

// Fill writes every present key of p into row. Field failures are logged and
// counted; they never abort the row. Only context cancellation is returned.
func (f *Filler) Fill(ctx context.Context, row int, p types.Payload) (FillStats, error) {
	var stats FillStats
	for _, key := range types.FillOrder {
		if !p.Present(key) {
			continue
		}
		name, ok := f.resolver.Resolve(row, key)
		if !ok {
			stats.Unmapped++
			f.log.Debug("key unmapped, skipping", zap.Int("row", row), zap.String("key", string(key)))
			continue
		}

		if err := f.writer.Write(ctx, row, key, name, p[key]); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			f.log.Warn("field write failed", zap.Int("row", row), zap.String("key", string(key)),
				zap.String("field", name), zap.Error(err))
		} else {
			stats.Written++
		}

		if err := sleep(ctx, f.timing.FieldDelay); err != nil {
			return stats, err
		}
	}

	f.runRecalc(ctx, row)
	return stats, nil
}

// runRecalc invokes the host's recalculation hook when it exists. Absence and
// failure are both tolerated.
func (f *Filler) runRecalc(ctx context.Context, row int) {
	if f.recalc.Hook == "" {
		return
	}
	hook, ok, err := f.host.Capability(ctx, f.recalc.Hook)
	if err != nil || !ok {
		f.log.Debug("recalc hook unavailable", zap.String("hook", f.recalc.Hook), zap.Error(err))
		return
	}
	for _, class := range f.recalc.Classes {
		if err := hook.Invoke(ctx, class, row); err != nil {
			f.log.Warn("recalc hook failed", zap.String("hook", f.recalc.Hook),
				zap.String("class", class), zap.Int("row", row), zap.Error(err))
		}
	}
}
