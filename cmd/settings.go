package cmd

import (
	"time"

	"github.com/ginjaninja78/lineitem-autofill/internal/autofill"
	"github.com/ginjaninja78/lineitem-autofill/internal/browser"
	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/converter"
)

// sourceExtensions are the file types fill and watch pick up.
var sourceExtensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".json"}

// disabledValue in a form setting turns the corresponding step off.
const disabledValue = "-"

func setting(s string) string {
	if s == disabledValue {
		return ""
	}
	return s
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// engineOptions maps configuration onto the fill engine.
func engineOptions(cfg *config.MainConfig) autofill.Options {
	f := cfg.Form
	t := cfg.Timing

	simulate := true
	if t.SimulateTyping != nil {
		simulate = *t.SimulateTyping
	}

	return autofill.Options{
		AddRowSelector: f.AddRowSelector,
		FieldNames:     f.FieldNames,
		Writer: autofill.WriterLayout{
			EditableFlagField:   setting(f.EditableFlagField),
			EditableFlagValue:   f.EditableFlagValue,
			UnitPriceEnableHook: setting(f.UnitPriceEnableHook),
			BackingListSuffix:   f.BackingListSuffix,
		},
		Recalc: autofill.RecalcLayout{
			Hook:    setting(f.RecalcHook),
			Classes: f.RecalcClasses,
		},
		Timing: autofill.Timing{
			PollInterval:   ms(t.PollIntervalMs),
			RowTimeout:     ms(t.RowTimeoutMs),
			RowSettle:      ms(t.RowSettleMs),
			FieldDelay:     ms(t.FieldDelayMs),
			KeyDelay:       ms(t.KeyDelayMs),
			RowGap:         ms(t.RowGapMs),
			SuggestBlur:    ms(t.SuggestBlurMs),
			SimulateTyping: simulate,
		},
	}
}

func browserConfig(cfg *config.MainConfig) browser.Config {
	b := cfg.Browser
	return browser.Config{
		ControlURL:          b.ControlURL,
		Bin:                 b.ChromeBin,
		Headless:            b.Headless,
		FormURL:             b.FormURL,
		URLContains:         b.URLContains,
		NavigationTimeoutMs: b.NavigationTimeoutMs,
	}
}

func formLayout(cfg *config.MainConfig) browser.Layout {
	return browser.Layout{
		RowContainer: setting(cfg.Form.RowContainer),
		CounterField: setting(cfg.Form.CounterField),
	}
}

// profileFor picks the profile for a file: the forced code if given,
// otherwise the first pattern match. OCR JSON without a matching profile
// gets an empty one, since its fields already use the key vocabulary.
func profileFor(profiles []*config.Profile, forced, path string) *config.Profile {
	if forced != "" {
		for _, p := range profiles {
			if p.ProfileCode == forced {
				return p
			}
		}
		return nil
	}
	if p := config.MatchProfile(profiles, path); p != nil {
		return p
	}
	if converter.DetectFormat(path, "") == converter.FormatJSON {
		return &config.Profile{ProfileName: "OCR JSON", ProfileCode: "json"}
	}
	return nil
}
