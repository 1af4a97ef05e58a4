// =============================================================================
// Line-Item Autofill - Field Writer
// =============================================================================
//
// The writer applies one value to one host field. The host's handlers are
// opaque, so the writer reproduces what a user's browser would do for that
// kind of field:
//
//   | Field                         | Strategy                                   |
//   |-------------------------------|--------------------------------------------|
//   | gst (checkbox)                | toggle on mismatch, always fire change     |
//   | unit_list                     | unlock price edit, backing list, then type |
//   | uom                           | backing list, then type                    |
//   | unit_price/amount (read-only) | skip: host-computed                        |
//   | hidden / invisible            | direct write + input + change              |
//   | acct/dept/proj_disp           | strip inline handlers, direct, focus/blur  |
//   | anything else                 | simulated typing (or direct when disabled) |
//
// A missing element is logged and skipped; it never fails the row.
//
// =============================================================================

package autofill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// suggestHandlerAttrs are the inline handler attributes the host's autosuggest
// widget hangs off its display fields.
var suggestHandlerAttrs = []string{"onfocus", "onblur", "onkeyup", "onchange"}

// restoreTimeout bounds putting suggest handlers back once the write is over.
const restoreTimeout = 2 * time.Second

// WriterLayout names the host-side helpers the writer reaches for.
type WriterLayout struct {
	// EditableFlagField is the "{n}" template of the hidden flag marking the
	// unit price as user-editable. Empty disables the step.
	EditableFlagField string
	EditableFlagValue string

	// UnitPriceEnableHook is the global enable-callback for unit price editing.
	UnitPriceEnableHook string

	// BackingListSuffix is appended to a field name to form the id of its
	// hidden selection list.
	BackingListSuffix string
}

// DefaultWriterLayout matches the production host form.
func DefaultWriterLayout() WriterLayout {
	return WriterLayout{
		EditableFlagField:   "upriceedit{n}",
		EditableFlagValue:   "1",
		UnitPriceEnableHook: "enableUnitPriceEdit",
		BackingListSuffix:   "_list",
	}
}

// Writer applies values to host fields.
type Writer struct {
	host   Host
	sim    *Simulator
	layout WriterLayout
	timing Timing
	log    *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(host Host, layout WriterLayout, timing Timing, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		host:   host,
		sim:    NewSimulator(log),
		layout: layout,
		timing: timing,
		log:    log,
	}
}

// Write applies value to the field named name, which holds key for row.
//
// RETURNS:
//   - nil when the value was written or deliberately skipped (missing
//     element, host-computed read-only field).
//   - an error when the host rejected a DOM operation; the caller logs it and
//     moves on to the next field.
func (w *Writer) Write(ctx context.Context, row int, key types.Key, name string, value any) error {
	log := w.log.With(zap.Int("row", row), zap.String("key", string(key)), zap.String("field", name))

	el, err := w.host.Field(ctx, name)
	if errors.Is(err, ErrElementNotFound) {
		log.Warn("field not found, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up %s: %w", name, err)
	}

	if types.BooleanKeys[key] {
		return w.writeCheckbox(ctx, el, truthy(value))
	}

	switch key {
	case types.KeyUnitList:
		w.unlockUnitPrice(ctx, row, el, log)
		w.ensureBackingList(ctx, name, log)
	case types.KeyUOM:
		w.ensureBackingList(ctx, name, log)
	}

	state, err := el.State(ctx)
	if err != nil {
		return fmt.Errorf("read state of %s: %w", name, err)
	}

	if types.ComputedKeys[key] && state.ReadOnly {
		log.Debug("host-computed field is read-only, skipping")
		return nil
	}

	if !state.Visible || state.Type == "hidden" {
		return w.writeDirect(ctx, el, value)
	}

	if types.SmartSuggestKeys[key] {
		return w.writeSuggest(ctx, el, value)
	}

	if !w.timing.SimulateTyping {
		return w.writeDirect(ctx, el, value)
	}
	return w.typeValue(ctx, el, stringify(value))
}

// writeDirect assigns the value without simulating keystrokes. It is the
// primitive under several strategies.
func (w *Writer) writeDirect(ctx context.Context, el Element, value any) error {
	state, err := el.State(ctx)
	if err != nil {
		return fmt.Errorf("read state of %s: %w", el.Name(), err)
	}
	if state.Disabled || state.ReadOnly {
		if err := el.Enable(ctx); err != nil {
			return fmt.Errorf("enable %s: %w", el.Name(), err)
		}
	}

	if state.Type == "checkbox" || state.Type == "radio" {
		return w.writeCheckbox(ctx, el, truthy(value))
	}

	s := stringify(value)
	if err := el.SetValue(ctx, s); err != nil {
		return fmt.Errorf("set value of %s: %w", el.Name(), err)
	}
	if err := el.SetAttribute(ctx, "value", s); err != nil {
		w.log.Debug("value attribute not mirrored", zap.String("field", el.Name()), zap.Error(err))
	}
	if err := w.sim.FireInput(ctx, el); err != nil {
		return err
	}
	return w.sim.FireChange(ctx, el)
}

// writeCheckbox toggles only when the current state differs and always fires
// change so the host re-reads the box.
func (w *Writer) writeCheckbox(ctx context.Context, el Element, want bool) error {
	checked, err := el.Checked(ctx)
	if err != nil {
		return fmt.Errorf("read checked state of %s: %w", el.Name(), err)
	}
	if checked != want {
		if err := el.SetChecked(ctx, want); err != nil {
			return fmt.Errorf("toggle %s: %w", el.Name(), err)
		}
	}
	return w.sim.FireChange(ctx, el)
}

// typeValue replays a user typing s into el.
func (w *Writer) typeValue(ctx context.Context, el Element, s string) error {
	if err := w.sim.FireFocus(ctx, el); err != nil {
		return err
	}
	if err := el.ClearSelection(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", el.Name(), err)
	}

	typed := make([]rune, 0, len(s))
	for _, ch := range s {
		if err := w.sim.FireKey(ctx, el, KeyDown, ch); err != nil {
			return err
		}
		if err := w.sim.FireKey(ctx, el, KeyPress, ch); err != nil {
			return err
		}
		typed = append(typed, ch)
		if err := el.SetValue(ctx, string(typed)); err != nil {
			return fmt.Errorf("append to %s: %w", el.Name(), err)
		}
		if err := w.sim.FireInput(ctx, el); err != nil {
			return err
		}
		if err := w.sim.FireKey(ctx, el, KeyUp, ch); err != nil {
			return err
		}
		if err := sleep(ctx, w.timing.KeyDelay); err != nil {
			return err
		}
	}

	if err := w.sim.FireChange(ctx, el); err != nil {
		return err
	}
	return w.sim.FireBlur(ctx, el)
}

// writeSuggest writes a smart-suggest display field with the autosuggest
// handlers detached, then puts the handler attributes back exactly as found.
func (w *Writer) writeSuggest(ctx context.Context, el Element, value any) (err error) {
	type saved struct {
		text    string
		present bool
	}
	attrs := make(map[string]saved, len(suggestHandlerAttrs))
	for _, name := range suggestHandlerAttrs {
		text, present, aerr := el.Attribute(ctx, name)
		if aerr != nil {
			return fmt.Errorf("read %s of %s: %w", name, el.Name(), aerr)
		}
		attrs[name] = saved{text: text, present: present}
	}

	// Restore runs even after ctx is cancelled.
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		defer cancel()
		for _, name := range suggestHandlerAttrs {
			s := attrs[name]
			var rerr error
			if s.present {
				rerr = el.SetAttribute(rctx, name, s.text)
			} else {
				rerr = el.RemoveAttribute(rctx, name)
			}
			if rerr != nil && err == nil {
				err = fmt.Errorf("restore %s of %s: %w", name, el.Name(), rerr)
			}
		}
	}()

	for _, name := range suggestHandlerAttrs {
		if attrs[name].present {
			if err := el.RemoveAttribute(ctx, name); err != nil {
				return fmt.Errorf("strip %s of %s: %w", name, el.Name(), err)
			}
		}
	}

	if err := w.writeDirect(ctx, el, value); err != nil {
		return err
	}
	if err := w.sim.FireFocus(ctx, el); err != nil {
		return err
	}
	if err := sleep(ctx, w.timing.SuggestBlur); err != nil {
		return err
	}
	return w.sim.FireBlur(ctx, el)
}

// unlockUnitPrice runs before unit_list is written. Failures are logged only.
func (w *Writer) unlockUnitPrice(ctx context.Context, row int, el Element, log *zap.Logger) {
	if w.layout.EditableFlagField != "" {
		flagName := ExpandRow(w.layout.EditableFlagField, row)
		flag, err := w.host.Field(ctx, flagName)
		switch {
		case err == nil:
			if err := flag.SetValue(ctx, w.layout.EditableFlagValue); err != nil {
				log.Warn("editable flag not set", zap.String("flag", flagName), zap.Error(err))
			}
		case !errors.Is(err, ErrElementNotFound):
			log.Warn("editable flag lookup failed", zap.String("flag", flagName), zap.Error(err))
		}
	}

	if w.layout.UnitPriceEnableHook != "" {
		hook, ok, err := w.host.Capability(ctx, w.layout.UnitPriceEnableHook)
		if err != nil {
			log.Warn("enable hook lookup failed", zap.Error(err))
		}
		if ok {
			if err := hook.Invoke(ctx, el.Name(), row); err != nil {
				log.Warn("enable hook failed", zap.String("hook", w.layout.UnitPriceEnableHook), zap.Error(err))
			}
			return
		}
	}

	if err := el.Click(ctx); err != nil {
		log.Warn("click to enable failed", zap.Error(err))
	}
}

func (w *Writer) ensureBackingList(ctx context.Context, name string, log *zap.Logger) {
	id := name + w.layout.BackingListSuffix
	created, err := w.host.EnsureBackingList(ctx, id)
	if err != nil {
		log.Warn("backing list not ensured", zap.String("list", id), zap.Error(err))
		return
	}
	if created {
		log.Debug("backing list created", zap.String("list", id))
	}
}
