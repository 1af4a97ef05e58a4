package browser

import (
	"strings"

	"github.com/ginjaninja78/lineitem-autofill/internal/autofill"
)

// Layout describes where the host keeps its row bookkeeping.
type Layout struct {
	// RowContainer is the id template of a row container, e.g. "row_{n}".
	RowContainer string

	// CounterField is the name (or id) of the hidden "max row added" field.
	// Empty disables the counter and forces container scanning.
	CounterField string
}

// DefaultLayout matches the production host form.
func DefaultLayout() Layout {
	return Layout{RowContainer: "row_" + autofill.RowPlaceholder, CounterField: "maxrowadded"}
}

// splitTemplate returns the text before and after the row placeholder. A
// template without a placeholder is treated as a prefix.
func splitTemplate(tmpl string) (prefix, suffix string) {
	before, after, found := strings.Cut(tmpl, autofill.RowPlaceholder)
	if !found {
		return tmpl, ""
	}
	return before, after
}

// attrSelector builds a CSS attribute selector with a quoted value.
func attrSelector(attr, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return "[" + attr + `="` + r.Replace(value) + `"]`
}
