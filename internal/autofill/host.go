// =============================================================================
// Line-Item Autofill - Host Form Interfaces
// =============================================================================
//
// The host form is an opaque, legacy, event-driven page. The engine never
// inspects its handlers; it only reads a few pieces of state and performs the
// same primitive DOM operations a user's browser would. Those primitives are
// expressed here as interfaces so the engine can run against a real browser
// (internal/browser) or an in-memory fake in tests.
//
// OWNERSHIP:
//   - The row counter and the row containers belong to the host. The engine
//     observes them through RowLedger and never writes them.
//   - Legacy global functions are optional capabilities: looked up by name,
//     invoked when present, otherwise the engine falls back to direct
//     manipulation.
//
// =============================================================================

package autofill

import (
	"context"
	"errors"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrElementNotFound is returned by Host lookups when nothing matches.
	ErrElementNotFound = errors.New("element not found")

	// ErrNoPayloads rejects a batch called with no payloads.
	ErrNoPayloads = errors.New("batch has no payloads")

	// ErrCurrentRowUnknown means neither the counter field nor the visible row
	// containers yielded a row index.
	ErrCurrentRowUnknown = errors.New("cannot determine current row")

	// ErrAddControlNotFound means the host's add-row trigger is missing.
	ErrAddControlNotFound = errors.New("add control not found")

	// ErrRowTimeout means the new row did not materialise in time.
	ErrRowTimeout = errors.New("row did not appear in time")

	// ErrPollTimeout is returned by Poll when the predicate never held.
	ErrPollTimeout = errors.New("poll timed out")
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind selects the DOM event constructor used for dispatch.
type EventKind int

const (
	// GenericEvent is a plain Event (input, change).
	GenericEvent EventKind = iota
	// FocusEvent is a FocusEvent (focus, focusin, blur, focusout).
	FocusEvent
	// KeyboardEvent is a KeyboardEvent (keydown, keypress, keyup).
	KeyboardEvent
)

// Event describes one synthetic DOM event.
type Event struct {
	Type       string
	Kind       EventKind
	Bubbles    bool
	Cancelable bool

	// Key and KeyCode are only meaningful for KeyboardEvent. KeyCode is a
	// best-effort override: hosts that forbid redefining it still dispatch.
	Key     string
	KeyCode int
}

// =============================================================================
// ELEMENT
// =============================================================================

// ElementState is a snapshot of the properties the writer branches on.
type ElementState struct {
	// Type is the lower-cased input type ("text", "checkbox", "hidden", ...),
	// or the lower-cased tag name for non-input elements.
	Type     string
	Visible  bool
	Disabled bool
	ReadOnly bool
}

// Element is one form control in the host page.
type Element interface {
	// Name returns the element's name attribute (or id when it has none).
	Name() string

	State(ctx context.Context) (ElementState, error)

	// Dispatch fires ev at the element. Bubbling and cancelability come from ev.
	Dispatch(ctx context.Context, ev Event) error

	// Focus and Blur call the native element methods.
	Focus(ctx context.Context) error
	Blur(ctx context.Context) error

	// Click calls the native click(), running the host's own click behaviour.
	Click(ctx context.Context) error

	Value(ctx context.Context) (string, error)
	SetValue(ctx context.Context, value string) error

	// ClearSelection selects the current text and replaces the selected range
	// with nothing, as a user's select-all + delete would.
	ClearSelection(ctx context.Context) error

	Checked(ctx context.Context) (bool, error)
	SetChecked(ctx context.Context, checked bool) error

	// Enable clears the disabled and readonly flags.
	Enable(ctx context.Context) error

	// Attribute returns the raw attribute text and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	SetAttribute(ctx context.Context, name, value string) error
	RemoveAttribute(ctx context.Context, name string) error
}

// =============================================================================
// HOST
// =============================================================================

// RowLedger is the narrow read-only view of the host's row bookkeeping.
type RowLedger interface {
	// MaxRow reads the authoritative "max row added" counter. ok is false when
	// the counter field is absent or not numeric.
	MaxRow(ctx context.Context) (n int, ok bool, err error)

	// VisibleRows returns the indices of row containers currently visible.
	VisibleRows(ctx context.Context) ([]int, error)

	// RowPresent reports whether the container for row n exists and is visible.
	RowPresent(ctx context.Context, n int) (bool, error)
}

// Capability is a legacy global function exposed by the host.
type Capability interface {
	Invoke(ctx context.Context, args ...any) error
}

// Host is the host form as seen by the engine.
type Host interface {
	RowLedger

	// Field returns the form control with the given name, or ErrElementNotFound.
	Field(ctx context.Context, name string) (Element, error)

	// Query returns the first element matching a CSS selector, or ErrElementNotFound.
	Query(ctx context.Context, selector string) (Element, error)

	// EnsureBackingList makes sure a hidden selection-list element with the
	// given id exists, creating it off-screen when absent.
	EnsureBackingList(ctx context.Context, id string) (created bool, err error)

	// Capability looks up a global function by its well-known name.
	Capability(ctx context.Context, name string) (Capability, bool, error)
}
