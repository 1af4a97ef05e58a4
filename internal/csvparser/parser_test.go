package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
)

func defaultSettings() config.CSVSettings {
	return config.CSVSettings{Delimiter: ",", HeaderRows: 1, DataStartRow: 2}
}

func TestParseReader_Basic(t *testing.T) {
	in := "\uFEFFItem No,Qty, Price \nA-1,2,3.50\n,,\nB-2,1\n"

	table, err := ParseReader(strings.NewReader(in), defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{"Item No", "Qty", "Price"}, table.Headers)
	want := []map[string]string{
		{"Item No": "A-1", "Qty": "2", "Price": "3.50"},
		{"Item No": "B-2", "Qty": "1", "Price": ""},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReader_MultiRowHeaderAndDelimiter(t *testing.T) {
	in := "Unit;Unit;\nList;Net;\n# exported 2024-01-02\n10;9;x\n"
	settings := config.CSVSettings{Delimiter: "semicolon", HeaderRows: 2, DataStartRow: 3, Comment: "#"}

	table, err := ParseReader(strings.NewReader(in), settings)
	require.NoError(t, err)

	assert.Equal(t, []string{"Unit List", "Unit Net", "Column_3"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "10", table.Rows[0]["Unit List"])
	assert.Equal(t, "x", table.Rows[0]["Column_3"])
}

func TestParseReader_Tabs(t *testing.T) {
	settings := defaultSettings()
	settings.Delimiter = "tab"

	table, err := ParseReader(strings.NewReader("a\tb\n1\t2\n"), settings)
	require.NoError(t, err)
	assert.Equal(t, "2", table.Rows[0]["b"])
}

func TestParseReader_Errors(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), defaultSettings())
	require.Error(t, err)

	settings := defaultSettings()
	settings.HeaderRows = 3
	_, err = ParseReader(strings.NewReader("a\n"), settings)
	require.ErrorContains(t, err, "header_rows")
}

func TestParse_SetsSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.csv")
	require.NoError(t, os.WriteFile(path, []byte("code\nX\n"), 0644))

	table, err := Parse(path, defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, path, table.SourceFile)
	assert.Len(t, table.Rows, 1)
}
