package autofill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

func newTestWriter(h *fakeHost) *Writer {
	return NewWriter(h, DefaultWriterLayout(), testTiming(), nil)
}

func TestWriter_CheckboxTogglesOnlyOnMismatch(t *testing.T) {
	h := newFakeHost()
	box := h.addField("gst1", "checkbox")
	w := newTestWriter(h)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, 1, types.KeyGST, "gst1", true))
	assert.True(t, box.checked)
	assert.Equal(t, 1, box.toggles)
	assert.Equal(t, []string{"toggle", "change"}, h.events("gst1"))

	require.NoError(t, w.Write(ctx, 1, types.KeyGST, "gst1", true))
	assert.True(t, box.checked)
	assert.Equal(t, 1, box.toggles, "already checked: no second toggle")
	assert.Equal(t, []string{"toggle", "change", "change"}, h.events("gst1"))
}

func TestWriter_CheckboxAcceptsStringFlags(t *testing.T) {
	h := newFakeHost()
	box := h.addField("gst2", "checkbox")
	box.checked = true
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 2, types.KeyGST, "gst2", "N"))
	assert.False(t, box.checked)
}

func TestWriter_ReadOnlyComputedFieldUntouched(t *testing.T) {
	for _, key := range []types.Key{types.KeyUnitPrice, types.KeyAmount} {
		t.Run(string(key), func(t *testing.T) {
			h := newFakeHost()
			el := h.addField("f1", "text")
			el.value = "12.50"
			el.readonly = true
			w := newTestWriter(h)

			require.NoError(t, w.Write(context.Background(), 1, key, "f1", 99.0))
			assert.Equal(t, "12.50", el.value)
			assert.Empty(t, h.events("f1"))
		})
	}
}

func TestWriter_ReadOnlyOrdinaryFieldIsEnabled(t *testing.T) {
	h := newFakeHost()
	el := h.addField("conv1", "hidden")
	el.readonly = true
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyConv, "conv1", 12.0))
	assert.Equal(t, "12", el.value)
	assert.False(t, el.readonly)
}

func TestWriter_HiddenFieldWrittenDirectly(t *testing.T) {
	h := newFakeHost()
	el := h.addField("batchnum1", "hidden")
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyBatchNum, "batchnum1", "B-77"))

	assert.Equal(t, "B-77", el.value)
	assert.Equal(t, "B-77", el.attrs["value"])
	assert.Equal(t, []string{"value=B-77", "input", "change"}, h.events("batchnum1"))
}

func TestWriter_InvisibleTextFieldWrittenDirectly(t *testing.T) {
	h := newFakeHost()
	el := h.addField("brand1", "text")
	el.visible = false
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyBrand, "brand1", "ACME"))
	assert.Equal(t, []string{"value=ACME", "input", "change"}, h.events("brand1"))
}

func TestWriter_TypesOrdinaryInput(t *testing.T) {
	h := newFakeHost()
	el := h.addField("qty1", "text")
	el.value = "old"
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyQty, "qty1", 2.5))

	want := []string{
		"focusin", "focus", "native-focus",
		"clear",
		"keydown", "keypress", "value=2", "input", "keyup",
		"keydown", "keypress", "value=2.", "input", "keyup",
		"keydown", "keypress", "value=2.5", "input", "keyup",
		"change",
		"focusout", "blur", "native-blur",
	}
	if diff := cmp.Diff(want, h.events("qty1")); diff != "" {
		t.Errorf("typing sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "2.5", el.value)

	var codes []int
	for _, ev := range el.dispatch {
		if ev.Type == "keydown" {
			codes = append(codes, ev.KeyCode)
		}
	}
	assert.Equal(t, []int{0, 190, 0}, codes)
}

func TestWriter_TypingDisabledWritesDirectly(t *testing.T) {
	h := newFakeHost()
	h.addField("itemdesc1", "text")
	timing := testTiming()
	timing.SimulateTyping = false
	w := NewWriter(h, DefaultWriterLayout(), timing, nil)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyDescShort, "itemdesc1", "Bolt M8"))
	assert.Equal(t, []string{"value=Bolt M8", "input", "change"}, h.events("itemdesc1"))
}

func TestWriter_SmartSuggestHandlersRestoredVerbatim(t *testing.T) {
	h := newFakeHost()
	el := h.addField("acct_disp1", "text")
	original := map[string]string{
		"onfocus": `showSuggest(this, 'acct');`,
		"onkeyup": `filterSuggest(this,event)  ;`,
	}
	for k, v := range original {
		el.attrs[k] = v
	}

	var duringWrite map[string]string
	el.onSet = func(el *fakeElement) {
		duringWrite = make(map[string]string)
		for _, name := range suggestHandlerAttrs {
			if v, ok := el.attrs[name]; ok {
				duringWrite[name] = v
			}
		}
	}

	w := newTestWriter(h)
	require.NoError(t, w.Write(context.Background(), 1, types.KeyAcctDisp, "acct_disp1", "4000-SALES"))

	assert.Empty(t, duringWrite, "handlers must be detached while the value is written")
	assert.Equal(t, "4000-SALES", el.value)

	restored := map[string]string{}
	for _, name := range suggestHandlerAttrs {
		if v, ok := el.attrs[name]; ok {
			restored[name] = v
		}
	}
	if diff := cmp.Diff(original, restored); diff != "" {
		t.Errorf("handler attributes not restored (-want +got):\n%s", diff)
	}

	want := []string{"value=4000-SALES", "input", "change", "focusin", "focus", "native-focus", "focusout", "blur", "native-blur"}
	assert.Equal(t, want, h.events("acct_disp1"))
}

func TestWriter_SmartSuggestHandlersRestoredAfterCancel(t *testing.T) {
	h := newFakeHost()
	base := h.addField("acct_disp1", "text")
	base.attrs["onfocus"] = `showSuggest(this, 'acct');`
	base.attrs["onchange"] = `pickSuggest(this);`
	el := ctxBoundElement{base}

	timing := testTiming()
	timing.SuggestBlur = 200 * time.Millisecond
	w := NewWriter(h, DefaultWriterLayout(), timing, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.writeSuggest(ctx, el, "4000-SALES")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, `showSuggest(this, 'acct');`, base.attrs["onfocus"])
	assert.Equal(t, `pickSuggest(this);`, base.attrs["onchange"])
	assert.NotContains(t, base.attrs, "onkeyup")
	assert.NotContains(t, base.attrs, "onblur")
}

func TestWriter_MissingFieldIsSkipped(t *testing.T) {
	h := newFakeHost()
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 4, types.KeyCode, "itemcode4", "X1"))
	assert.Empty(t, h.log)
}

func TestWriter_UnitListUsesEnableHook(t *testing.T) {
	h := newFakeHost()
	h.addField("unitlist1", "text")
	flag := h.addField("upriceedit1", "hidden")
	hook := &fakeCap{host: h, name: "enableUnitPriceEdit"}
	h.caps[hook.name] = hook
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyUnitList, "unitlist1", 10.0))

	assert.Equal(t, "1", flag.value)
	require.Len(t, hook.calls, 1)
	assert.Equal(t, []any{"unitlist1", 1}, hook.calls[0])
	assert.NotContains(t, h.events("unitlist1"), "click")
	assert.True(t, h.lists["unitlist1_list"])
	assert.Less(t, h.indexOf("unitlist1_list:list-created"), h.indexOf("unitlist1:value=1"))
}

func TestWriter_UnitListFallsBackToClick(t *testing.T) {
	h := newFakeHost()
	h.addField("unitlist1", "text")
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyUnitList, "unitlist1", "10"))

	events := h.events("unitlist1")
	require.NotEmpty(t, events)
	assert.Equal(t, "click", events[0])
}

func TestWriter_UnitListHookFailureIsTolerated(t *testing.T) {
	h := newFakeHost()
	el := h.addField("unitlist1", "text")
	h.caps["enableUnitPriceEdit"] = &fakeCap{host: h, name: "enableUnitPriceEdit", err: errors.New("TypeError")}
	w := newTestWriter(h)

	require.NoError(t, w.Write(context.Background(), 1, types.KeyUnitList, "unitlist1", "10"))
	assert.Equal(t, "10", el.value)
}

func TestWriter_UOMBackingListCreatedOnce(t *testing.T) {
	h := newFakeHost()
	h.addField("uom1", "text")
	w := newTestWriter(h)
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, 1, types.KeyUOM, "uom1", "PCS"))
	require.NoError(t, w.Write(ctx, 1, types.KeyUOM, "uom1", "BOX"))

	assert.Equal(t, []string{"list-created"}, h.events("uom1_list"))
}
