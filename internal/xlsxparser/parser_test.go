package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// writeWorkbook saves sheets (name -> rows) to a temp workbook. The first
// sheet replaces excelize's default "Sheet1".
func writeWorkbook(t *testing.T, sheets []string, rows map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadTable(t *testing.T) {
	path := writeWorkbook(t, []string{"Items"}, map[string][][]any{
		"Items": {
			{"Supplier invoice 4711"},
			{"Item No", "", "Qty"},
			{"A-1", "x", 2},
			{"", "", ""},
			{" B-2 "},
		},
	})

	table, err := ReadTable(path, config.XLSXSettings{HeaderRow: 2, DataStartRow: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"Item No", "Column_2", "Qty"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "A-1", table.Rows[0]["Item No"])
	assert.Equal(t, "x", table.Rows[0]["Column_2"])
	assert.Equal(t, "2", table.Rows[0]["Qty"])
	assert.Equal(t, "B-2", table.Rows[1]["Item No"])
	assert.Equal(t, "", table.Rows[1]["Qty"])
	assert.Equal(t, path, table.SourceFile)
}

func TestReadTable_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, []string{"Items"}, map[string][][]any{"Items": {{"a"}}})

	_, err := ReadTable(path, config.XLSXSettings{Sheet: "Nope"})
	require.Error(t, err)
}

func TestParseMapping(t *testing.T) {
	path := writeWorkbook(t, []string{"Mapping", "_notes"}, map[string][][]any{
		"Mapping": {
			{"Source Header", "Semantic Key", "Default Value"},
			{"Item No", "code"},
			{"Unit", "UOM", "EA"},
			{"", "gst", "Y"},
			{"Colour", "colour"},
		},
		"_notes": {
			{"ignored", "ignored"},
			{"x", "brand"},
		},
	})

	m, err := ParseMapping(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]types.Key{"Item No": types.KeyCode, "Unit": types.KeyUOM}, m.Columns)
	assert.Equal(t, map[types.Key]string{types.KeyUOM: "EA", types.KeyGST: "Y"}, m.Defaults)
	assert.Equal(t, []string{"Mapping!5: colour"}, m.Unknown)
}
