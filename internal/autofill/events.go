package autofill

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// KeyPhase is one stage of a keystroke.
type KeyPhase string

const (
	KeyDown  KeyPhase = "keydown"
	KeyPress KeyPhase = "keypress"
	KeyUp    KeyPhase = "keyup"
)

// KeyCode derives a legacy keyCode from a typed character: ASCII letters map to
// their upper-case code, '.' to 190, '-' to 189, anything else to 0.
func KeyCode(ch rune) int {
	switch {
	case ch >= 'a' && ch <= 'z':
		return int(ch - 'a' + 'A')
	case ch >= 'A' && ch <= 'Z':
		return int(ch)
	case ch == '.':
		return 190
	case ch == '-':
		return 189
	}
	return 0
}

// Simulator synthesises the events a real user's interaction would produce.
// Every event bubbles, because legacy forms tend to attach their handlers at an
// ancestor through delegation.
type Simulator struct {
	log *zap.Logger
}

// NewSimulator creates a Simulator. A nil logger discards diagnostics.
func NewSimulator(log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{log: log}
}

// FireFocus dispatches focusin and focus, then calls the native focus().
func (s *Simulator) FireFocus(ctx context.Context, el Element) error {
	for _, typ := range []string{"focusin", "focus"} {
		if err := el.Dispatch(ctx, Event{Type: typ, Kind: FocusEvent, Bubbles: true}); err != nil {
			return fmt.Errorf("dispatch %s on %s: %w", typ, el.Name(), err)
		}
	}
	if err := el.Focus(ctx); err != nil {
		return fmt.Errorf("focus %s: %w", el.Name(), err)
	}
	return nil
}

// FireBlur dispatches focusout and blur, then calls the native blur().
func (s *Simulator) FireBlur(ctx context.Context, el Element) error {
	for _, typ := range []string{"focusout", "blur"} {
		if err := el.Dispatch(ctx, Event{Type: typ, Kind: FocusEvent, Bubbles: true}); err != nil {
			return fmt.Errorf("dispatch %s on %s: %w", typ, el.Name(), err)
		}
	}
	if err := el.Blur(ctx); err != nil {
		return fmt.Errorf("blur %s: %w", el.Name(), err)
	}
	return nil
}

// FireKey dispatches a cancelable keyboard event for one phase of typing ch.
func (s *Simulator) FireKey(ctx context.Context, el Element, phase KeyPhase, ch rune) error {
	ev := Event{
		Type:       string(phase),
		Kind:       KeyboardEvent,
		Bubbles:    true,
		Cancelable: true,
		Key:        string(ch),
		KeyCode:    KeyCode(ch),
	}
	if err := el.Dispatch(ctx, ev); err != nil {
		return fmt.Errorf("dispatch %s on %s: %w", phase, el.Name(), err)
	}
	return nil
}

// FireInput dispatches an input event.
func (s *Simulator) FireInput(ctx context.Context, el Element) error {
	return s.fire(ctx, el, "input")
}

// FireChange dispatches a change event.
func (s *Simulator) FireChange(ctx context.Context, el Element) error {
	return s.fire(ctx, el, "change")
}

func (s *Simulator) fire(ctx context.Context, el Element, typ string) error {
	if err := el.Dispatch(ctx, Event{Type: typ, Kind: GenericEvent, Bubbles: true}); err != nil {
		return fmt.Errorf("dispatch %s on %s: %w", typ, el.Name(), err)
	}
	s.log.Debug("event dispatched", zap.String("field", el.Name()), zap.String("event", typ))
	return nil
}
