// =============================================================================
// Line-Item Autofill - Converter Module
// =============================================================================
//
// Turns one source file into the payloads the form filler consumes.
//
// CONVERSION PIPELINE:
//   1. Resolve the column mapping (profile mapping over the XLSX template)
//   2. Read the source: CSV, XLSX sheet, or OCR JSON
//   3. Apply transformation rules to source cells
//   4. Map source columns onto semantic keys
//   5. Apply template defaults and static fields
//   6. Normalise values to the payload contract
//   7. Validate the batch
//
// CONCURRENCY:
//   A Converter touches only its own file and is safe to run alongside
//   others; the fill command converts files in parallel.
//
// =============================================================================

package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/csvparser"
	"github.com/ginjaninja78/lineitem-autofill/internal/types"
	"github.com/ginjaninja78/lineitem-autofill/internal/validation"
	"github.com/ginjaninja78/lineitem-autofill/internal/xlsxparser"
)

// Source formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of converting a single file.
type Result struct {
	// FilePath is the source file.
	FilePath string

	// Profile is the code of the profile used.
	Profile string

	// Payloads holds one payload per non-empty source row, in source order.
	Payloads []types.Payload

	// Validation holds the findings for Payloads.
	Validation *validation.ValidationResult

	// Success is false when the file could not be read, or validation found
	// errors and ContinueOnError is off.
	Success bool

	// Error is set when Success is false.
	Error error

	Stats ProcessingStats
}

// ProcessingStats contains statistics about one conversion.
type ProcessingStats struct {
	// RowsRead is the number of source rows (or JSON items) read.
	RowsRead int

	// PayloadsCreated is len(Result.Payloads).
	PayloadsCreated int

	// RowsSkipped counts rows that produced no known key.
	RowsSkipped int

	ValidationErrors   int
	ValidationWarnings int

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter converts a single source file.
type Converter struct {
	path       string
	profile    *config.Profile
	mainConfig *config.MainConfig
	log        *zap.Logger
}

// New creates a Converter.
//
// PARAMETERS:
//   - path: The source file.
//   - profile: The profile matched for the file.
//   - mainConfig: Supplies TemplatesDir and ContinueOnError.
//   - log: Logger; nil disables logging.
func New(path string, profile *config.Profile, mainConfig *config.MainConfig, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		path:       path,
		profile:    profile,
		mainConfig: mainConfig,
		log:        log.With(zap.String("file", filepath.Base(path)), zap.String("profile", profile.ProfileCode)),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline.
func (c *Converter) Run() Result {
	start := time.Now()
	result := Result{FilePath: c.path, Profile: c.profile.ProfileCode}

	mapping, err := c.resolveMapping()
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve column mapping: %w", err)
		return result
	}

	transformer, err := NewTransformer(c.profile.TransformationRules)
	if err != nil {
		result.Error = fmt.Errorf("failed to compile transformation rules: %w", err)
		return result
	}

	format := DetectFormat(c.path, c.profile.Format)
	var raws []map[types.Key]any
	switch format {
	case FormatCSV, FormatXLSX:
		table, err := c.readTable(format)
		if err != nil {
			result.Error = err
			return result
		}
		result.Stats.RowsRead = len(table.Rows)
		raws = mapTable(table, transformer, mapping.Columns)

	case FormatJSON:
		items, err := LoadJSON(c.path)
		if err != nil {
			result.Error = fmt.Errorf("failed to read JSON: %w", err)
			return result
		}
		result.Stats.RowsRead = len(items)
		raws = mapItems(items, transformer, mapping.Columns)

	default:
		result.Error = fmt.Errorf("unsupported source format %q", format)
		return result
	}

	for _, raw := range raws {
		applyDefaults(raw, mapping.Defaults)
		p := Normalize(raw)
		if !hasKnownKey(p) {
			result.Stats.RowsSkipped++
			continue
		}
		result.Payloads = append(result.Payloads, p)
	}
	result.Stats.PayloadsCreated = len(result.Payloads)
	c.log.Debug("converted source rows",
		zap.String("format", format),
		zap.Int("rows", result.Stats.RowsRead),
		zap.Int("payloads", result.Stats.PayloadsCreated),
		zap.Int("skipped", result.Stats.RowsSkipped))

	report := validation.NewValidator().ValidateAll(result.Payloads)
	result.Validation = report
	result.Stats.ValidationErrors = report.ErrorCount
	result.Stats.ValidationWarnings = report.WarningCount
	for _, ve := range report.Errors {
		if ve.Severity == validation.SeverityError {
			c.log.Warn("validation error", zap.String("detail", ve.Error()))
		} else {
			c.log.Debug("validation warning", zap.String("detail", ve.Error()))
		}
	}

	result.Stats.ProcessingTime = time.Since(start)
	if report.ErrorCount > 0 && !c.mainConfig.ContinueOnError {
		result.Error = fmt.Errorf("validation failed with %d errors", report.ErrorCount)
		return result
	}
	if len(result.Payloads) == 0 {
		result.Error = fmt.Errorf("no line items found")
		return result
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// DetectFormat returns forced if set, otherwise the format implied by the
// file extension.
func DetectFormat(path, forced string) string {
	if forced != "" {
		return strings.ToLower(forced)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".json":
		return FormatJSON
	}
	return ""
}

func (c *Converter) readTable(format string) (*types.Table, error) {
	if format == FormatXLSX {
		table, err := xlsxparser.ReadTable(c.path, c.profile.XLSXSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse XLSX: %w", err)
		}
		return table, nil
	}
	table, err := csvparser.Parse(c.path, c.profile.CSVSettings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return table, nil
}

// resolveMapping merges the profile's column mapping over its template.
func (c *Converter) resolveMapping() (*xlsxparser.Mapping, error) {
	mapping := &xlsxparser.Mapping{
		Columns:  make(map[string]types.Key),
		Defaults: make(map[types.Key]string),
	}

	if c.profile.MappingTemplate != "" {
		templatePath := filepath.Join(c.mainConfig.TemplatesDir, c.profile.MappingTemplate)
		if _, err := os.Stat(templatePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("template file not found: %s", templatePath)
		}
		tmpl, err := xlsxparser.ParseMapping(templatePath)
		if err != nil {
			return nil, err
		}
		for _, u := range tmpl.Unknown {
			c.log.Warn("mapping template names an unknown key", zap.String("entry", u))
		}
		mapping = tmpl
	}

	for header, key := range c.profile.ColumnMapping {
		k := types.Key(strings.ToLower(strings.TrimSpace(key)))
		if !types.IsKnown(k) {
			return nil, fmt.Errorf("column %q maps to unknown key %q", header, key)
		}
		mapping.Columns[header] = k
	}

	for _, sf := range c.profile.StaticFields {
		k := types.Key(strings.ToLower(strings.TrimSpace(sf.Key)))
		if !types.IsKnown(k) {
			return nil, fmt.Errorf("static field names unknown key %q", sf.Key)
		}
		mapping.Defaults[k] = sf.Value
	}
	return mapping, nil
}

// mapTable maps each table row onto semantic keys. Unmapped columns are
// dropped.
func mapTable(table *types.Table, t *Transformer, columns map[string]types.Key) []map[types.Key]any {
	out := make([]map[types.Key]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		t.TransformRow(row)
		raw := make(map[types.Key]any)
		for header, value := range row {
			if key, ok := columns[header]; ok {
				raw[key] = value
			}
		}
		out = append(out, raw)
	}
	return out
}

// mapItems maps JSON objects onto semantic keys. A field is taken as-is when
// it already names a key (case-insensitive), otherwise through the column
// mapping. Fields matching neither are kept so validation can report them.
func mapItems(items []map[string]any, t *Transformer, columns map[string]types.Key) []map[types.Key]any {
	out := make([]map[types.Key]any, 0, len(items))
	for _, item := range items {
		strs := make(map[string]string)
		for field, v := range item {
			if s, ok := v.(string); ok {
				strs[field] = s
			}
		}
		t.TransformRow(strs)

		raw := make(map[types.Key]any, len(item))
		for field, v := range item {
			if s, ok := strs[field]; ok {
				v = s
			}
			if key, ok := columns[field]; ok {
				raw[key] = v
				continue
			}
			raw[types.Key(strings.ToLower(strings.TrimSpace(field)))] = v
		}
		out = append(out, raw)
	}
	return out
}

// applyDefaults fills keys that are missing or blank.
func applyDefaults(raw map[types.Key]any, defaults map[types.Key]string) {
	for key, def := range defaults {
		v, ok := raw[key]
		if s, isString := v.(string); !ok || v == nil || (isString && strings.TrimSpace(s) == "") {
			raw[key] = def
		}
	}
}

func hasKnownKey(p types.Payload) bool {
	for key := range p {
		if types.IsKnown(key) {
			return true
		}
	}
	return false
}

// =============================================================================
// OCR JSON
// =============================================================================

// LoadJSON reads line items from an OCR export: either a top-level array of
// objects or an object holding the array under "items" or "line_items".
func LoadJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeItems(data)
}

// DecodeItems decodes line items from JSON. Numbers are kept as json.Number
// so codes like "00123" and long amounts survive unchanged until
// normalisation.
func DecodeItems(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if data[0] == '[' {
		var items []map[string]any
		if err := dec.Decode(&items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var doc map[string]json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	for _, field := range []string{"items", "line_items", "lineItems"} {
		if rawItems, ok := doc[field]; ok {
			return DecodeItems(rawItems)
		}
	}
	return nil, fmt.Errorf("no items array found")
}
