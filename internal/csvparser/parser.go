// =============================================================================
// Line-Item Autofill - CSV Parser Module
// =============================================================================
//
// Reads supplier CSV exports into a types.Table. Delimiter, header rows and
// the data start row come from the source profile.
//
// PARSING STRATEGY:
//   - Headers may span several rows; their parts are joined with a space
//   - Blank headers become "Column_N"
//   - A UTF-8 byte-order mark on the first header is dropped
//   - Rows of empty cells are skipped
//   - Short rows are padded with empty cells
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

const utf8BOM = "\uFEFF"

// =============================================================================
// MAIN PARSING FUNCTION
// =============================================================================

// Parse reads a CSV file and returns its table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter and header layout from the profile.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be read or has no header.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(bufio.NewReader(file), settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader reads CSV from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	csvReader := csv.NewReader(r)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers, err := extractHeaders(allRows, settings.HeaderRows)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	start := settings.DataStartRow - 1
	if start < settings.HeaderRows {
		start = settings.HeaderRows
	}

	return &types.Table{
		Headers: headers,
		Rows:    extractDataRows(allRows, headers, start),
	}, nil
}

// configureReader applies the profile's settings to the CSV reader.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "pipe", "PIPE":
		reader.Comma = '|'
	case "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}
	if len(settings.Comment) > 0 {
		reader.Comment = rune(settings.Comment[0])
	}

	// Supplier exports are ragged and loosely quoted.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// =============================================================================
// HEADER / ROW EXTRACTION
// =============================================================================

func extractHeaders(allRows [][]string, headerRows int) ([]string, error) {
	if headerRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	maxCols := 0
	for i := 0; i < headerRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < headerRows; row++ {
			if col < len(allRows[row]) {
				if v := strings.TrimSpace(allRows[row][col]); v != "" {
					parts = append(parts, v)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}
	if maxCols > 0 {
		headers[0] = strings.TrimSpace(strings.TrimPrefix(headers[0], utf8BOM))
	}

	for i, h := range headers {
		if h == "" {
			headers[i] = fmt.Sprintf("Column_%d", i+1)
		}
	}
	return headers, nil
}

func extractDataRows(allRows [][]string, headers []string, start int) []map[string]string {
	if start >= len(allRows) {
		return []map[string]string{}
	}

	rows := make([]map[string]string, 0, len(allRows)-start)
	for _, raw := range allRows[start:] {
		if isRowEmpty(raw) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(raw) {
				row[header] = strings.TrimSpace(raw[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
