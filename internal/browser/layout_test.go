package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitTemplate(t *testing.T) {
	tests := []struct {
		tmpl           string
		prefix, suffix string
	}{
		{"row_{n}", "row_", ""},
		{"line{n}_tr", "line", "_tr"},
		{"rows", "rows", ""},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			prefix, suffix := splitTemplate(tt.tmpl)
			assert.Equal(t, tt.prefix, prefix)
			assert.Equal(t, tt.suffix, suffix)
		})
	}
}

func TestAttrSelector(t *testing.T) {
	assert.Equal(t, `[name="itemcode1"]`, attrSelector("name", "itemcode1"))
	assert.Equal(t, `[id="a\"b\\c"]`, attrSelector("id", `a"b\c`))
}

func TestConfigNavigationTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, Config{}.NavigationTimeout())
	assert.Equal(t, 2*time.Second, Config{NavigationTimeoutMs: 2000}.NavigationTimeout())
	assert.Equal(t, "row_{n}", DefaultLayout().RowContainer)
}
