package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "input_dir: "+filepath.Join(dir, "in")+"\n"+
		"input_archive_dir: "+filepath.Join(dir, "arch")+"\n"+
		"reports_dir: "+filepath.Join(dir, "rep")+"\n"+
		"templates_dir: "+filepath.Join(dir, "tpl")+"\n"+
		"profiles_dir: "+filepath.Join(dir, "prof")+"\n")

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "#btnAddRow", cfg.Form.AddRowSelector)
	assert.Equal(t, "row_{n}", cfg.Form.RowContainer)
	assert.Equal(t, "maxrowadded", cfg.Form.CounterField)
	assert.Equal(t, []string{"numeric", "text"}, cfg.Form.RecalcClasses)
	assert.Equal(t, 50, cfg.Timing.PollIntervalMs)
	assert.Equal(t, 8000, cfg.Timing.RowTimeoutMs)
	require.NotNil(t, cfg.Timing.SimulateTyping)
	assert.True(t, *cfg.Timing.SimulateTyping)
	assert.Equal(t, "GEMINI_API_KEY", cfg.OCR.APIKeyEnv)
	assert.DirExists(t, filepath.Join(dir, "in"))
	assert.DirExists(t, filepath.Join(dir, "prof"))
}

func TestLoadMainConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
input_dir: `+filepath.Join(dir, "in")+`
input_archive_dir: `+filepath.Join(dir, "arch")+`
reports_dir: `+filepath.Join(dir, "rep")+`
templates_dir: `+filepath.Join(dir, "tpl")+`
profiles_dir: `+filepath.Join(dir, "prof")+`
log_level: debug
form:
  field_names:
    batchnum: "lotno{n}"
    proj_disp: ""
timing:
  row_timeout_ms: 2000
  simulate_typing: false
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "lotno{n}", cfg.Form.FieldNames["batchnum"])
	v, ok := cfg.Form.FieldNames["proj_disp"]
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, 2000, cfg.Timing.RowTimeoutMs)
	assert.False(t, *cfg.Timing.SimulateTyping)
}

func TestLoadMainConfig_ZeroDelaysKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
input_dir: `+filepath.Join(dir, "in")+`
input_archive_dir: `+filepath.Join(dir, "arch")+`
reports_dir: `+filepath.Join(dir, "rep")+`
templates_dir: `+filepath.Join(dir, "tpl")+`
profiles_dir: `+filepath.Join(dir, "prof")+`
timing:
  field_delay_ms: 0
  key_delay_ms: 0
  row_gap_ms: 0
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Zero(t, cfg.Timing.FieldDelayMs)
	assert.Zero(t, cfg.Timing.KeyDelayMs)
	assert.Zero(t, cfg.Timing.RowGapMs)
	assert.Equal(t, 300, cfg.Timing.RowSettleMs, "omitted delays keep their defaults")
	assert.Equal(t, 100, cfg.Timing.SuggestBlurMs)
	assert.Equal(t, 50, cfg.Timing.PollIntervalMs)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "log_level: loud\n")
	_, err = LoadMainConfig(bad)
	require.ErrorContains(t, err, "log_level")

	slow := filepath.Join(dir, "slow.yaml")
	writeFile(t, slow, "timing:\n  poll_interval_ms: 9000\n  row_timeout_ms: 100\n")
	_, err = LoadMainConfig(slow)
	require.ErrorContains(t, err, "poll_interval_ms")

	negative := filepath.Join(dir, "negative.yaml")
	writeFile(t, negative, "timing:\n  key_delay_ms: -5\n")
	_, err = LoadMainConfig(negative)
	require.ErrorContains(t, err, "key_delay_ms")

	typo := filepath.Join(dir, "typo.yaml")
	writeFile(t, typo, "form:\n  field_names:\n    unit_prce: \"\"\n")
	_, err = LoadMainConfig(typo)
	require.ErrorContains(t, err, `unknown key "unit_prce"`)
}

func TestLoadProfilesAndMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "acme.yaml"), `
profile_name: ACME supplier export
file_matching_patterns: ["acme_*.csv"]
csv_settings:
  delimiter: ";"
column_mapping:
  "Item No": code
`)
	writeFile(t, filepath.Join(dir, "ocr.yml"), `
profile_code: ocr
file_matching_patterns: ["*.json"]
`)

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	acme := profiles[0]
	assert.Equal(t, "acme", acme.ProfileCode)
	assert.Equal(t, ";", acme.CSVSettings.Delimiter)
	assert.Equal(t, 1, acme.CSVSettings.HeaderRows)
	assert.Equal(t, 2, acme.CSVSettings.DataStartRow)
	assert.Equal(t, 2, acme.XLSXSettings.DataStartRow)

	assert.Same(t, acme, MatchProfile(profiles, "/in/acme_2024.csv"))
	assert.Equal(t, "ocr", MatchProfile(profiles, "scan_ocr.json").ProfileCode)
	assert.Nil(t, MatchProfile(profiles, "other.xlsx"))
}

func TestLoadProfiles_DuplicateCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "profile_code: same\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "profile_code: same\n")

	_, err := LoadProfiles(dir)
	require.ErrorContains(t, err, "same")
}
