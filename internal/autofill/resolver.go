package autofill

import (
	"strconv"
	"strings"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// RowPlaceholder is replaced with the row index in field-name templates.
const RowPlaceholder = "{n}"

// DefaultFieldNames is the host form's per-row naming table.
var DefaultFieldNames = map[types.Key]string{
	types.KeyCode:         "itemcode{n}",
	types.KeyBrand:        "brand{n}",
	types.KeyDescShort:    "itemdesc{n}",
	types.KeyDescLong:     "itemdesc2_{n}",
	types.KeyUOM:          "uom{n}",
	types.KeyQty:          "qty{n}",
	types.KeyUnitList:     "unitlist{n}",
	types.KeyDiscPct:      "discpct{n}",
	types.KeyUnitPrice:    "uprice{n}",
	types.KeyAmount:       "amt{n}",
	types.KeyUnitWithGST:  "upricegst{n}",
	types.KeyConv:         "conv{n}",
	types.KeyQtyUOMStk:    "qtyuomstk{n}",
	types.KeyUPriceUOMStk: "upriceuomstk{n}",
	types.KeyUOMStk:       "uomstk{n}",
	types.KeyGST:          "gst{n}",
	types.KeyAcctDisp:     "acct_disp{n}",
	types.KeyDeptDisp:     "dept_disp{n}",
	types.KeyProjDisp:     "proj_disp{n}",
	types.KeyRqtDay:       "rqtday{n}",
	types.KeyRqtMonth:     "rqtmth{n}",
	types.KeyRqtYear:      "rqtyr{n}",
	types.KeyBatchNum:     "batchnum{n}",
}

// Resolver maps (row, key) to the host form's field name. It holds no state
// beyond its naming table and is safe to share.
type Resolver struct {
	templates map[types.Key]string
}

// NewResolver builds a resolver from the default table with overrides applied.
// An empty override unmaps the key.
func NewResolver(overrides map[string]string) *Resolver {
	templates := make(map[types.Key]string, len(DefaultFieldNames))
	for k, v := range DefaultFieldNames {
		templates[k] = v
	}
	for k, v := range overrides {
		templates[types.Key(k)] = v
	}
	return &Resolver{templates: templates}
}

// Resolve returns the field name for key in row. ok is false when the key has
// no corresponding field; callers skip it silently.
func (r *Resolver) Resolve(row int, key types.Key) (name string, ok bool) {
	tmpl := r.templates[key]
	if tmpl == "" {
		return "", false
	}
	return ExpandRow(tmpl, row), true
}

// ExpandRow substitutes the row index into a "{n}" template.
func ExpandRow(tmpl string, row int) string {
	return strings.ReplaceAll(tmpl, RowPlaceholder, strconv.Itoa(row))
}
