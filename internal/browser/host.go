package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/autofill"
)

// Host drives the host form in one Chrome tab. It implements autofill.Host.
type Host struct {
	page   *rod.Page
	layout Layout
	log    *zap.Logger
}

var _ autofill.Host = (*Host)(nil)

// NewHost wraps page.
func NewHost(page *rod.Page, layout Layout, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{page: page, layout: layout, log: log}
}

func (h *Host) p(ctx context.Context) *rod.Page {
	return h.page.Context(ctx)
}

// MaxRow reads the counter field.
func (h *Host) MaxRow(ctx context.Context) (int, bool, error) {
	if h.layout.CounterField == "" {
		return 0, false, nil
	}
	res, err := h.p(ctx).Eval(jsCounter, h.layout.CounterField)
	if err != nil {
		return 0, false, fmt.Errorf("read counter %s: %w", h.layout.CounterField, err)
	}
	if res.Value.Nil() {
		return 0, false, nil
	}
	return res.Value.Int(), true, nil
}

// VisibleRows scans the row containers.
func (h *Host) VisibleRows(ctx context.Context) ([]int, error) {
	prefix, suffix := splitTemplate(h.layout.RowContainer)
	res, err := h.p(ctx).Eval(jsVisibleRows, prefix, suffix)
	if err != nil {
		return nil, fmt.Errorf("scan row containers: %w", err)
	}
	var rows []int
	for _, v := range res.Value.Arr() {
		rows = append(rows, v.Int())
	}
	return rows, nil
}

// RowPresent reports whether row n's container exists and is visible.
func (h *Host) RowPresent(ctx context.Context, n int) (bool, error) {
	id := autofill.ExpandRow(h.layout.RowContainer, n)
	res, err := h.p(ctx).Eval(jsRowPresent, id)
	if err != nil {
		return false, fmt.Errorf("check row %d: %w", n, err)
	}
	return res.Value.Bool(), nil
}

// Field looks a control up by name, then by id.
func (h *Host) Field(ctx context.Context, name string) (autofill.Element, error) {
	for _, sel := range []string{attrSelector("name", name), attrSelector("id", name)} {
		el, err := h.has(ctx, sel)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return &element{el: el, name: name}, nil
		}
	}
	return nil, autofill.ErrElementNotFound
}

// Query returns the first element matching selector.
func (h *Host) Query(ctx context.Context, selector string) (autofill.Element, error) {
	el, err := h.has(ctx, selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, autofill.ErrElementNotFound
	}
	return &element{el: el, name: selector}, nil
}

// has looks up selector without rod's default wait-until-found behaviour.
func (h *Host) has(ctx context.Context, selector string) (*rod.Element, error) {
	ok, el, err := h.p(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if !ok {
		return nil, nil
	}
	return el, nil
}

// EnsureBackingList creates an off-screen select with the given id if the
// page has none.
func (h *Host) EnsureBackingList(ctx context.Context, id string) (bool, error) {
	res, err := h.p(ctx).Eval(jsEnsureList, id)
	if err != nil {
		return false, fmt.Errorf("ensure list %s: %w", id, err)
	}
	created := res.Value.Bool()
	if created {
		h.log.Debug("backing list created", zap.String("id", id))
	}
	return created, nil
}

// Capability looks up a global function on window.
func (h *Host) Capability(ctx context.Context, name string) (autofill.Capability, bool, error) {
	res, err := h.p(ctx).Eval(jsHasGlobal, name)
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s: %w", name, err)
	}
	if !res.Value.Bool() {
		return nil, false, nil
	}
	return &globalFunc{page: h.page, name: name}, true, nil
}

// globalFunc is a host function reachable as window[name].
type globalFunc struct {
	page *rod.Page
	name string
}

// Invoke calls the function. A page-side exception comes back as an error.
func (g *globalFunc) Invoke(ctx context.Context, args ...any) error {
	if args == nil {
		args = []any{}
	}
	if _, err := g.page.Context(ctx).Eval(jsInvokeGlobal, g.name, args); err != nil {
		return fmt.Errorf("%s(): %w", g.name, err)
	}
	return nil
}
