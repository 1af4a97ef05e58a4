package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ginjaninja78/lineitem-autofill/internal/autofill"
)

// element adapts a rod element to autofill.Element. Every operation is a
// page-side call on the live node, so host handlers observe real DOM events.
type element struct {
	el   *rod.Element
	name string
}

func (e *element) Name() string { return e.name }

func (e *element) eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	return e.el.Context(ctx).Eval(js, args...)
}

func (e *element) run(ctx context.Context, js string, args ...any) error {
	_, err := e.el.Context(ctx).Eval(js, args...)
	return err
}

func (e *element) State(ctx context.Context) (autofill.ElementState, error) {
	res, err := e.eval(ctx, jsState)
	if err != nil {
		return autofill.ElementState{}, err
	}
	m := res.Value.Map()
	return autofill.ElementState{
		Type:     m["type"].Str(),
		Visible:  m["visible"].Bool(),
		Disabled: m["disabled"].Bool(),
		ReadOnly: m["readOnly"].Bool(),
	}, nil
}

func (e *element) Dispatch(ctx context.Context, ev autofill.Event) error {
	return e.run(ctx, jsDispatch, ev.Type, int(ev.Kind), ev.Bubbles, ev.Cancelable, ev.Key, ev.KeyCode)
}

func (e *element) Focus(ctx context.Context) error { return e.run(ctx, jsFocus) }

func (e *element) Blur(ctx context.Context) error { return e.run(ctx, jsBlur) }

func (e *element) Click(ctx context.Context) error { return e.run(ctx, jsClick) }

func (e *element) Value(ctx context.Context) (string, error) {
	res, err := e.eval(ctx, jsValue)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) SetValue(ctx context.Context, value string) error {
	return e.run(ctx, jsSetValue, value)
}

func (e *element) ClearSelection(ctx context.Context) error {
	return e.run(ctx, jsClearSelection)
}

func (e *element) Checked(ctx context.Context) (bool, error) {
	res, err := e.eval(ctx, jsChecked)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *element) SetChecked(ctx context.Context, checked bool) error {
	return e.run(ctx, jsSetChecked, checked)
}

func (e *element) Enable(ctx context.Context) error { return e.run(ctx, jsEnable) }

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) SetAttribute(ctx context.Context, name, value string) error {
	return e.run(ctx, jsSetAttribute, name, value)
}

func (e *element) RemoveAttribute(ctx context.Context, name string) error {
	return e.run(ctx, jsRemoveAttribute, name)
}
