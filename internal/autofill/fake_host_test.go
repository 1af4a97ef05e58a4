package autofill

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// fakeHost is an in-memory host form. Every DOM operation is appended to log
// so tests can assert on ordering.
type fakeHost struct {
	fields   map[string]*fakeElement
	queries  map[string]*fakeElement
	counter  *int
	rows     map[int]bool
	lists    map[string]bool
	caps     map[string]*fakeCap
	log      []string
	rowNames []string // "{n}" templates created for each new row
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		fields:  make(map[string]*fakeElement),
		queries: make(map[string]*fakeElement),
		rows:    make(map[int]bool),
		lists:   make(map[string]bool),
		caps:    make(map[string]*fakeCap),
	}
}

func (h *fakeHost) record(format string, args ...any) {
	h.log = append(h.log, fmt.Sprintf(format, args...))
}

// withCounter installs the authoritative row counter at n.
func (h *fakeHost) withCounter(n int) *fakeHost {
	h.counter = &n
	return h
}

// withAddButton installs an add-row trigger that bumps the counter (when
// present), shows the new row container and creates its text fields.
func (h *fakeHost) withAddButton() *fakeHost {
	btn := &fakeElement{host: h, name: "btnAddRow", typ: "button", visible: true}
	btn.onClick = func() {
		next := h.maxObserved() + 1
		if h.counter != nil {
			*h.counter = next
		}
		h.rows[next] = true
		for _, tmpl := range h.rowNames {
			h.addField(ExpandRow(tmpl, next), "text")
		}
	}
	h.queries[DefaultAddRowSelector] = btn
	return h
}

func (h *fakeHost) maxObserved() int {
	if h.counter != nil {
		return *h.counter
	}
	max := 0
	for r := range h.rows {
		if r > max {
			max = r
		}
	}
	return max
}

func (h *fakeHost) addField(name, typ string) *fakeElement {
	el := &fakeElement{host: h, name: name, typ: typ, visible: typ != "hidden", attrs: map[string]string{}}
	h.fields[name] = el
	return el
}

func (h *fakeHost) events(name string) []string {
	var out []string
	prefix := name + ":"
	for _, entry := range h.log {
		if strings.HasPrefix(entry, prefix) {
			out = append(out, strings.TrimPrefix(entry, prefix))
		}
	}
	return out
}

func (h *fakeHost) indexOf(entry string) int {
	for i, e := range h.log {
		if e == entry {
			return i
		}
	}
	return -1
}

func (h *fakeHost) MaxRow(ctx context.Context) (int, bool, error) {
	if h.counter == nil {
		return 0, false, nil
	}
	return *h.counter, true, nil
}

func (h *fakeHost) VisibleRows(ctx context.Context) ([]int, error) {
	var out []int
	for r, visible := range h.rows {
		if visible {
			out = append(out, r)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (h *fakeHost) RowPresent(ctx context.Context, n int) (bool, error) {
	return h.rows[n], nil
}

func (h *fakeHost) Field(ctx context.Context, name string) (Element, error) {
	el, ok := h.fields[name]
	if !ok {
		return nil, ErrElementNotFound
	}
	return el, nil
}

func (h *fakeHost) Query(ctx context.Context, selector string) (Element, error) {
	el, ok := h.queries[selector]
	if !ok {
		return nil, ErrElementNotFound
	}
	return el, nil
}

func (h *fakeHost) EnsureBackingList(ctx context.Context, id string) (bool, error) {
	if h.lists[id] {
		return false, nil
	}
	h.lists[id] = true
	h.record("%s:list-created", id)
	return true, nil
}

func (h *fakeHost) Capability(ctx context.Context, name string) (Capability, bool, error) {
	c, ok := h.caps[name]
	if !ok {
		return nil, false, nil
	}
	return c, true, nil
}

type fakeCap struct {
	host  *fakeHost
	name  string
	calls [][]any
	err   error
}

func (c *fakeCap) Invoke(ctx context.Context, args ...any) error {
	c.calls = append(c.calls, args)
	c.host.record("%s:invoke", c.name)
	return c.err
}

type fakeElement struct {
	host     *fakeHost
	name     string
	typ      string
	value    string
	attrs    map[string]string
	checked  bool
	visible  bool
	disabled bool
	readonly bool
	toggles  int
	dispatch []Event
	onClick  func()
	onSet    func(el *fakeElement)
}

func (e *fakeElement) Name() string { return e.name }

func (e *fakeElement) State(ctx context.Context) (ElementState, error) {
	return ElementState{Type: e.typ, Visible: e.visible, Disabled: e.disabled, ReadOnly: e.readonly}, nil
}

func (e *fakeElement) Dispatch(ctx context.Context, ev Event) error {
	e.dispatch = append(e.dispatch, ev)
	e.host.record("%s:%s", e.name, ev.Type)
	return nil
}

func (e *fakeElement) Focus(ctx context.Context) error {
	e.host.record("%s:native-focus", e.name)
	return nil
}

func (e *fakeElement) Blur(ctx context.Context) error {
	e.host.record("%s:native-blur", e.name)
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.host.record("%s:click", e.name)
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Value(ctx context.Context) (string, error) { return e.value, nil }

func (e *fakeElement) SetValue(ctx context.Context, value string) error {
	if e.readonly {
		return errors.New("read-only")
	}
	e.value = value
	e.host.record("%s:value=%s", e.name, value)
	if e.onSet != nil {
		e.onSet(e)
	}
	return nil
}

func (e *fakeElement) ClearSelection(ctx context.Context) error {
	e.value = ""
	e.host.record("%s:clear", e.name)
	return nil
}

func (e *fakeElement) Checked(ctx context.Context) (bool, error) { return e.checked, nil }

func (e *fakeElement) SetChecked(ctx context.Context, checked bool) error {
	e.checked = checked
	e.toggles++
	e.host.record("%s:toggle", e.name)
	return nil
}

func (e *fakeElement) Enable(ctx context.Context) error {
	e.disabled, e.readonly = false, false
	return nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) SetAttribute(ctx context.Context, name, value string) error {
	e.attrs[name] = value
	return nil
}

func (e *fakeElement) RemoveAttribute(ctx context.Context, name string) error {
	delete(e.attrs, name)
	return nil
}

// testTiming keeps every wait short enough for unit tests.
func testTiming() Timing {
	return Timing{
		PollInterval:   time.Millisecond,
		RowTimeout:     30 * time.Millisecond,
		SimulateTyping: true,
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Timing = testTiming()
	return opts
}

// ctxBoundElement behaves like a browser element: attribute calls fail once
// their context is done.
type ctxBoundElement struct {
	*fakeElement
}

func (e ctxBoundElement) SetAttribute(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.fakeElement.SetAttribute(ctx, name, value)
}

func (e ctxBoundElement) RemoveAttribute(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.fakeElement.RemoveAttribute(ctx, name)
}
