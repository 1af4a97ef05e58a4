// =============================================================================
// Line-Item Autofill - Configuration Module
// =============================================================================
//
// This module loads and manages the configuration files.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, browser connection,
//      host form layout, timing and OCR settings
//   2. Source Profiles (profiles/*.yaml): how one family of input files
//      (a supplier's CSV export, an XLSX template, OCR output) maps onto the
//      line-item vocabulary
//
// Secrets (the OCR API key) are never stored in YAML; the main config only
// names the environment variable that holds them. The CLI loads a .env file
// before reading the config.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for CSV, XLSX and payload JSON files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// InputArchiveDir receives input files once every row was filled.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ReportsDir receives run summaries.
	// Default: "./reports"
	ReportsDir string `yaml:"reports_dir"`

	// TemplatesDir holds XLSX column-mapping templates referenced by profiles.
	// Default: "./templates"
	TemplatesDir string `yaml:"templates_dir"`

	// ProfilesDir holds the source profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional second log sink. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel: "debug", "info", "warn", "error". Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// SummaryNameFormat names the run summary written to ReportsDir.
	// Placeholders: {uuid}, {timestamp}, {date}, {time}
	// Default: "fill_{timestamp}_{uuid}.txt"
	SummaryNameFormat string `yaml:"summary_name_format"`

	// MaxConcurrency bounds how many input files are parsed at once. Filling
	// the form is always sequential.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError fills files even when validation reported errors.
	ContinueOnError bool `yaml:"continue_on_error"`

	Browser BrowserConfig `yaml:"browser"`
	Form    FormConfig    `yaml:"form"`
	Timing  TimingConfig  `yaml:"timing"`
	OCR     OCRConfig     `yaml:"ocr"`
	Watch   WatchConfig   `yaml:"watch"`
}

// =============================================================================
// BROWSER SETTINGS
// =============================================================================

// BrowserConfig selects the Chrome instance that hosts the form.
type BrowserConfig struct {
	// ControlURL attaches to a running Chrome (ws:// or http://host:9222).
	// Empty launches a new one.
	ControlURL string `yaml:"control_url"`

	// ChromeBin is the binary used when launching.
	ChromeBin string `yaml:"chrome_bin"`

	Headless bool `yaml:"headless"`

	// FormURL is opened when no tab matches URLContains.
	FormURL string `yaml:"form_url"`

	// URLContains picks the form tab among the open tabs.
	URLContains string `yaml:"url_contains"`

	// NavigationTimeoutMs bounds loading FormURL. Default: 30000
	NavigationTimeoutMs int `yaml:"navigation_timeout_ms"`
}

// =============================================================================
// HOST FORM LAYOUT
// =============================================================================

// FormConfig describes the host form. The defaults match the production form;
// every entry exists so a changed deployment can be followed without a rebuild.
type FormConfig struct {
	// AddRowSelector is the CSS selector of the add-row trigger.
	// Default: "#btnAddRow"
	AddRowSelector string `yaml:"add_row_selector"`

	// RowContainer is the id template of a row container.
	// Default: "row_{n}"
	RowContainer string `yaml:"row_container"`

	// CounterField is the hidden "max row added" field. "-" disables it.
	// Default: "maxrowadded"
	CounterField string `yaml:"counter_field"`

	// FieldNames overrides the per-key field-name templates ("{n}" is the row).
	// An empty value leaves the key unmapped; keys outside the line-item
	// vocabulary are rejected.
	//
	// Example:
	//   field_names:
	//     batchnum: "lotno{n}"
	//     proj_disp: ""
	FieldNames map[string]string `yaml:"field_names"`

	// UnitPriceEnableHook is the global called before writing unit_list.
	// Default: "enableUnitPriceEdit"
	UnitPriceEnableHook string `yaml:"unit_price_enable_hook"`

	// EditableFlagField / EditableFlagValue mark unit price as user-edited.
	// Defaults: "upriceedit{n}" / "1"
	EditableFlagField string `yaml:"editable_flag_field"`
	EditableFlagValue string `yaml:"editable_flag_value"`

	// BackingListSuffix names the hidden select list for uom and unit_list.
	// Default: "_list"
	BackingListSuffix string `yaml:"backing_list_suffix"`

	// RecalcHook runs once per class in RecalcClasses after each row.
	// Defaults: "decimalFix" / ["numeric", "text"]
	RecalcHook    string   `yaml:"recalc_hook"`
	RecalcClasses []string `yaml:"recalc_classes"`
}

// =============================================================================
// TIMING
// =============================================================================

// TimingConfig holds every wait used while driving the form, in milliseconds.
// The delays accept 0 to turn them off; poll interval and row timeout must be
// positive.
type TimingConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"` // Default: 50
	RowTimeoutMs   int `yaml:"row_timeout_ms"`   // Default: 8000
	RowSettleMs    int `yaml:"row_settle_ms"`    // Default: 300
	FieldDelayMs   int `yaml:"field_delay_ms"`   // Default: 60
	KeyDelayMs     int `yaml:"key_delay_ms"`     // Default: 15
	RowGapMs       int `yaml:"row_gap_ms"`       // Default: 200
	SuggestBlurMs  int `yaml:"suggest_blur_ms"`  // Default: 100

	// SimulateTyping types ordinary inputs key by key. Default: true
	SimulateTyping *bool `yaml:"simulate_typing"`
}

// =============================================================================
// OCR
// =============================================================================

// OCRConfig configures the Gemini extractor used by the ocr command.
type OCRConfig struct {
	// Model name. Default: "gemini-1.5-flash"
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// Default: "GEMINI_API_KEY"
	APIKeyEnv string `yaml:"api_key_env"`

	// MaxRetries and RetryDelayMs govern retries. Defaults: 3 / 2000
	MaxRetries   int `yaml:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// DebounceMs is how long a file must stay quiet before it is filled.
	// Default: 1500
	DebounceMs int `yaml:"debounce_ms"`
}

// =============================================================================
// SOURCE PROFILE STRUCTURE
// =============================================================================

// Profile describes one family of input files. The first profile whose
// patterns match a file name is used for it.
type Profile struct {
	// ProfileName is used in logs and reports.
	ProfileName string `yaml:"profile_name"`

	// ProfileCode is a short identifier; it keys the loaded profile map.
	ProfileCode string `yaml:"profile_code"`

	// FileMatchingPatterns are glob patterns matched against the file name.
	// Examples: "acme_*.csv", "*_ocr.json"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Format forces "csv", "xlsx" or "json". Empty infers it from the extension.
	Format string `yaml:"format"`

	CSVSettings  CSVSettings  `yaml:"csv_settings"`
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`

	// ColumnMapping maps a source header to a semantic key.
	//
	// Example:
	//   column_mapping:
	//     "Item No": code
	//     "Qty":     qty
	ColumnMapping map[string]string `yaml:"column_mapping"`

	// MappingTemplate is an XLSX column-mapping template in TemplatesDir. Its
	// entries are merged under ColumnMapping (ColumnMapping wins).
	MappingTemplate string `yaml:"mapping_template"`

	// TransformationRules run on source cells before mapping.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// StaticFields add a constant value for a key to every payload that does
	// not already carry one.
	StaticFields []StaticField `yaml:"static_fields"`
}

// =============================================================================
// CSV / XLSX SETTINGS
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter: ",", "|", ";", "tab". Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows; multi-row headers are joined
	// with a space. Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-based row where data begins. Default: HeaderRows+1
	DataStartRow int `yaml:"data_start_row"`

	// Comment lines starting with this character are skipped.
	Comment string `yaml:"comment"`
}

// XLSXSettings contains settings for reading XLSX line-item workbooks.
type XLSXSettings struct {
	// Sheet to read. Empty reads the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRow is the 1-based header row. Default: 1
	HeaderRow int `yaml:"header_row"`

	// DataStartRow is the 1-based first data row. Default: HeaderRow+1
	DataStartRow int `yaml:"data_start_row"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines transformations for one source column.
type TransformationRule struct {
	// Field is the source header the actions apply to.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the transformation. Supported types:
	//   - "prepend_string" / "append_string"
	//   - "trim", "uppercase", "lowercase", "normalize_whitespace"
	//   - "pad_zeros_to_length" : Value is the target length
	//   - "replace"             : Find -> Value
	//   - "regex_replace"       : Find (pattern) -> Value
	//   - "strip_currency"      : drop currency symbols and thousands separators
	//   - "format_number"       : Value is the number of decimals
	//   - "format_date"         : Value is "input_layout|output_layout"
	//   - "lookup"              : LookupTable, unknown values pass through
	//   - "lookup_with_default" : LookupTable, unknown values become Value
	//   - "if_empty_use_default": empty values become Value
	Type string `yaml:"type"`

	Value string `yaml:"value"`

	// Find is used by "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable is used by "lookup" and "lookup_with_default".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// StaticField is a constant value for one semantic key.
type StaticField struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct, defaults applied and directories
//     created.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Timing defaults are seeded before decoding so an explicit 0 survives.
	config := MainConfig{Timing: defaultTiming()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	setDefault(&config.InputDir, "./input")
	setDefault(&config.InputArchiveDir, "./input_archive")
	setDefault(&config.ReportsDir, "./reports")
	setDefault(&config.TemplatesDir, "./templates")
	setDefault(&config.ProfilesDir, "./profiles")
	setDefault(&config.LogLevel, "info")
	setDefault(&config.SummaryNameFormat, "fill_{timestamp}_{uuid}.txt")
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}

	if config.Browser.NavigationTimeoutMs <= 0 {
		config.Browser.NavigationTimeoutMs = 30000
	}

	f := &config.Form
	setDefault(&f.AddRowSelector, "#btnAddRow")
	setDefault(&f.RowContainer, "row_{n}")
	setDefault(&f.CounterField, "maxrowadded")
	setDefault(&f.UnitPriceEnableHook, "enableUnitPriceEdit")
	setDefault(&f.EditableFlagField, "upriceedit{n}")
	setDefault(&f.EditableFlagValue, "1")
	setDefault(&f.BackingListSuffix, "_list")
	setDefault(&f.RecalcHook, "decimalFix")
	if len(f.RecalcClasses) == 0 {
		f.RecalcClasses = []string{"numeric", "text"}
	}

	t := &config.Timing
	setDefaultInt(&t.PollIntervalMs, 50)
	setDefaultInt(&t.RowTimeoutMs, 8000)
	if t.SimulateTyping == nil {
		on := true
		t.SimulateTyping = &on
	}

	setDefault(&config.OCR.Model, "gemini-1.5-flash")
	setDefault(&config.OCR.APIKeyEnv, "GEMINI_API_KEY")
	setDefaultInt(&config.OCR.MaxRetries, 3)
	setDefaultInt(&config.OCR.RetryDelayMs, 2000)

	setDefaultInt(&config.Watch.DebounceMs, 1500)
}

// defaultTiming holds the waits used when config.yaml leaves them out. The
// delays may be set to 0 explicitly.
func defaultTiming() TimingConfig {
	return TimingConfig{
		PollIntervalMs: 50,
		RowTimeoutMs:   8000,
		RowSettleMs:    300,
		FieldDelayMs:   60,
		KeyDelayMs:     15,
		RowGapMs:       200,
		SuggestBlurMs:  100,
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setDefaultInt(field *int, value int) {
	if *field <= 0 {
		*field = value
	}
}

// validateMainConfig checks value ranges and creates the working directories.
func validateMainConfig(config *MainConfig) error {
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error (got %q)", config.LogLevel)
	}

	t := config.Timing
	delays := []struct {
		name  string
		value int
	}{
		{"row_settle_ms", t.RowSettleMs},
		{"field_delay_ms", t.FieldDelayMs},
		{"key_delay_ms", t.KeyDelayMs},
		{"row_gap_ms", t.RowGapMs},
		{"suggest_blur_ms", t.SuggestBlurMs},
	}
	for _, d := range delays {
		if d.value < 0 {
			return fmt.Errorf("timing.%s must not be negative (got %d)", d.name, d.value)
		}
	}

	for key := range config.Form.FieldNames {
		if !types.IsKnown(types.Key(key)) {
			return fmt.Errorf("form.field_names: unknown key %q", key)
		}
	}

	if config.Timing.PollIntervalMs > config.Timing.RowTimeoutMs {
		return fmt.Errorf("timing.poll_interval_ms (%d) exceeds timing.row_timeout_ms (%d)",
			config.Timing.PollIntervalMs, config.Timing.RowTimeoutMs)
	}

	dirs := []string{
		config.InputDir,
		config.InputArchiveDir,
		config.ReportsDir,
		config.TemplatesDir,
		config.ProfilesDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadProfiles loads every profile in a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing *.yaml / *.yml profiles.
//
// RETURNS:
//   - The profiles, sorted by code so matching is deterministic.
//   - An error if the directory cannot be listed or any file cannot be parsed.
func LoadProfiles(profilesDir string) ([]*Profile, error) {
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	files = append(files, ymlFiles...)

	profiles := make([]*Profile, 0, len(files))
	seen := make(map[string]string)
	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if other, dup := seen[profile.ProfileCode]; dup {
			return nil, fmt.Errorf("profile code %q defined in both %s and %s", profile.ProfileCode, other, file)
		}
		seen[profile.ProfileCode] = file
		profiles = append(profiles, profile)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ProfileCode < profiles[j].ProfileCode
	})
	return profiles, nil
}

// loadProfile loads a single profile file.
func loadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.ProfileCode == "" {
		base := filepath.Base(filePath)
		profile.ProfileCode = base[:len(base)-len(filepath.Ext(base))]
	}
	if profile.ProfileName == "" {
		profile.ProfileName = profile.ProfileCode
	}

	applyProfileDefaults(&profile)
	return &profile, nil
}

// applyProfileDefaults sets default values for a profile.
func applyProfileDefaults(profile *Profile) {
	if profile.CSVSettings.Delimiter == "" {
		profile.CSVSettings.Delimiter = ","
	}
	if profile.CSVSettings.HeaderRows <= 0 {
		profile.CSVSettings.HeaderRows = 1
	}
	if profile.CSVSettings.DataStartRow <= 0 {
		profile.CSVSettings.DataStartRow = profile.CSVSettings.HeaderRows + 1
	}

	if profile.XLSXSettings.HeaderRow <= 0 {
		profile.XLSXSettings.HeaderRow = 1
	}
	if profile.XLSXSettings.DataStartRow <= 0 {
		profile.XLSXSettings.DataStartRow = profile.XLSXSettings.HeaderRow + 1
	}
}

// MatchProfile returns the first profile with a pattern matching the file's
// base name, or nil.
func MatchProfile(profiles []*Profile, filePath string) *Profile {
	fileName := filepath.Base(filePath)
	for _, profile := range profiles {
		for _, pattern := range profile.FileMatchingPatterns {
			matched, err := filepath.Match(pattern, fileName)
			if err != nil {
				continue
			}
			if matched {
				return profile
			}
		}
	}
	return nil
}
