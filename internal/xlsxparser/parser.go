// =============================================================================
// Line-Item Autofill - XLSX Module
// =============================================================================
//
// Two kinds of workbook pass through here:
//
//   1. Line-item workbooks: a sheet of line items with one header row, read
//      into a types.Table just like a CSV export.
//   2. Column-mapping templates: maintained by the people who know each
//      supplier's export. One row per source column:
//
//        | Column A      | Column B     | Column C      |
//        |---------------|--------------|---------------|
//        | Source Header | Semantic Key | Default Value |
//        | Item No       | code         |               |
//        | Unit          | uom          | EA            |
//
//      Row 1 is a header and is skipped. A default is used when the source
//      cell is empty. Sheets whose name starts with "_" are ignored.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// =============================================================================
// LINE-ITEM WORKBOOKS
// =============================================================================

// ReadTable reads a line-item sheet.
//
// PARAMETERS:
//   - path: The workbook path.
//   - settings: Sheet name and 1-based header / data rows from the profile.
//
// RETURNS:
//   - The table, cells trimmed, empty rows skipped.
//   - An error if the workbook or sheet cannot be read.
func ReadTable(path string, settings config.XLSXSettings) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := settings.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	headerRow := settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q has no header row %d", sheet, headerRow)
	}

	headers := make([]string, len(rows[headerRow-1]))
	for i, h := range rows[headerRow-1] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}

	start := settings.DataStartRow - 1
	if start < headerRow {
		start = headerRow
	}

	table := &types.Table{Headers: headers, Rows: []map[string]string{}, SourceFile: path}
	for i := start; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		row := make(map[string]string, len(headers))
		for c, header := range headers {
			row[header] = getCell(rows[i], c)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// =============================================================================
// COLUMN-MAPPING TEMPLATES
// =============================================================================

// Mapping is a parsed column-mapping template.
type Mapping struct {
	TemplateFile string

	// Columns maps a source header to a semantic key.
	Columns map[string]types.Key

	// Defaults holds the fallback value per semantic key.
	Defaults map[types.Key]string

	// Unknown lists semantic keys in the template that are not part of the
	// vocabulary, as "sheet!row: key".
	Unknown []string
}

// TemplateColumns locates the template's columns (0-based).
type TemplateColumns struct {
	SourceHeaderColumn int
	KeyColumn          int
	DefaultColumn      int
	DataStartRow       int
}

// DefaultTemplateColumns returns the standard A/B/C layout with one header row.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		SourceHeaderColumn: 0, // Column A
		KeyColumn:          1, // Column B
		DefaultColumn:      2, // Column C
		DataStartRow:       1, // Row 2
	}
}

// ParseMapping parses every visible sheet of a mapping template.
func ParseMapping(templatePath string) (*Mapping, error) {
	return ParseMappingWithColumns(templatePath, DefaultTemplateColumns())
}

// ParseMappingWithColumns parses a template with a custom column layout.
func ParseMappingWithColumns(templatePath string, columns TemplateColumns) (*Mapping, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	mapping := &Mapping{
		TemplateFile: templatePath,
		Columns:      make(map[string]types.Key),
		Defaults:     make(map[types.Key]string),
	}

	for _, sheet := range f.GetSheetList() {
		if strings.HasPrefix(sheet, "_") {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("error reading sheet '%s': %w", sheet, err)
		}
		for i := columns.DataStartRow; i < len(rows); i++ {
			row := rows[i]
			header := getCell(row, columns.SourceHeaderColumn)
			rawKey := strings.ToLower(getCell(row, columns.KeyColumn))
			if rawKey == "" {
				continue
			}
			key := types.Key(rawKey)
			if !types.IsKnown(key) {
				mapping.Unknown = append(mapping.Unknown, fmt.Sprintf("%s!%d: %s", sheet, i+1, rawKey))
				continue
			}
			if header != "" {
				mapping.Columns[header] = key
			}
			if def := getCell(row, columns.DefaultColumn); def != "" {
				mapping.Defaults[key] = def
			}
		}
	}

	return mapping, nil
}

func getCell(row []string, index int) string {
	if index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
