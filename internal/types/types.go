// =============================================================================
// Line-Item Autofill - Shared Types
// =============================================================================
//
// This package contains the line-item vocabulary shared by every stage of the
// pipeline. Types defined here are used by:
//   - converter   (produces payloads from CSV / XLSX / OCR JSON)
//   - validation  (checks payloads against the producer contract)
//   - autofill    (writes payloads into the host form)
//
// =============================================================================

package types

// =============================================================================
// SEMANTIC FIELD KEYS
// =============================================================================

// Key is a semantic field key: one canonical line-item attribute.
// The host form's own field names are derived from a Key and a row index.
type Key string

// The fixed 23-key vocabulary.
const (
	KeyCode         Key = "code"
	KeyBrand        Key = "brand"
	KeyDescShort    Key = "desc_short"
	KeyDescLong     Key = "desc_long"
	KeyUOM          Key = "uom"
	KeyQty          Key = "qty"
	KeyUnitList     Key = "unit_list"
	KeyDiscPct      Key = "disc_pct"
	KeyUnitPrice    Key = "unit_price"
	KeyAmount       Key = "amount"
	KeyUnitWithGST  Key = "unit_w_gst"
	KeyConv         Key = "conv"
	KeyQtyUOMStk    Key = "qty_uomstk"
	KeyUPriceUOMStk Key = "uprice_uomstk"
	KeyUOMStk       Key = "uomstk"
	KeyGST          Key = "gst"
	KeyAcctDisp     Key = "acct_disp"
	KeyDeptDisp     Key = "dept_disp"
	KeyProjDisp     Key = "proj_disp"
	KeyRqtDay       Key = "rqt_day"
	KeyRqtMonth     Key = "rqt_mth"
	KeyRqtYear      Key = "rqt_yr"
	KeyBatchNum     Key = "batchnum"
)

// =============================================================================
// FILL ORDER
// =============================================================================

// FillOrder is the order in which keys are written within one row.
//
// The host form recomputes downstream fields from upstream ones inside its own
// change handlers: uom and qty must be settled before unit_price and amount,
// and unit_list must run before unit_price because it unlocks price editing.
// Reordering this list silently desynchronises host-computed fields.
var FillOrder = []Key{
	KeyCode,
	KeyBrand,
	KeyDescShort,
	KeyDescLong,
	KeyUOM,
	KeyQty,
	KeyUnitList,
	KeyDiscPct,
	KeyUnitPrice,
	KeyAmount,
	KeyUnitWithGST,
	KeyConv,
	KeyQtyUOMStk,
	KeyUPriceUOMStk,
	KeyUOMStk,
	KeyGST,
	KeyAcctDisp,
	KeyDeptDisp,
	KeyProjDisp,
	KeyRqtDay,
	KeyRqtMonth,
	KeyRqtYear,
	KeyBatchNum,
}

var known = func() map[Key]bool {
	m := make(map[Key]bool, len(FillOrder))
	for _, k := range FillOrder {
		m[k] = true
	}
	return m
}()

// IsKnown reports whether k belongs to the vocabulary.
func IsKnown(k Key) bool {
	return known[k]
}

// =============================================================================
// KEY CLASSES
// =============================================================================

// NumericKeys are keys whose values are numbers (or null) in a payload.
var NumericKeys = map[Key]bool{
	KeyQty:          true,
	KeyDiscPct:      true,
	KeyUnitPrice:    true,
	KeyAmount:       true,
	KeyUnitWithGST:  true,
	KeyConv:         true,
	KeyQtyUOMStk:    true,
	KeyUPriceUOMStk: true,
}

// BooleanKeys are keys backed by a checkbox in the host form.
var BooleanKeys = map[Key]bool{
	KeyGST: true,
}

// SmartSuggestKeys are display fields backed by the host's autosuggest widget.
var SmartSuggestKeys = map[Key]bool{
	KeyAcctDisp: true,
	KeyDeptDisp: true,
	KeyProjDisp: true,
}

// ComputedKeys are keys the host usually computes itself; they are skipped when
// the host marks the target read-only.
var ComputedKeys = map[Key]bool{
	KeyUnitPrice: true,
	KeyAmount:    true,
}

// =============================================================================
// ROW PAYLOAD
// =============================================================================

// Payload is one line item: semantic key -> scalar value.
//
// Values are string, float64 (or any Go integer), bool, or nil. Absent and nil
// keys are skipped during fill, never written as empty.
type Payload map[Key]any

// Present reports whether k carries a non-nil value.
func (p Payload) Present(k Key) bool {
	v, ok := p[k]
	return ok && v != nil
}

// =============================================================================
// SOURCE TABLE
// =============================================================================

// Table is a tabular source (CSV or XLSX) after header extraction. Cells are
// trimmed strings keyed by header.
type Table struct {
	// Headers in column order.
	Headers []string

	// Rows holds one header -> cell map per non-empty data row.
	Rows []map[string]string

	// SourceFile is the file the table was read from.
	SourceFile string
}
