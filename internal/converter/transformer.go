// =============================================================================
// Line-Item Autofill - Transformation Engine
// =============================================================================
//
// Applies a profile's transformation rules to source cells before they are
// mapped onto semantic keys. Rules are keyed by source header; actions run in
// the order listed.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/lineitem-autofill/internal/config"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	currencyNoise = regexp.MustCompile(`[^0-9.,\-()]`)
)

// Transformer applies transformation rules to source rows.
type Transformer struct {
	rules map[string][]config.TransformationAction
	re    map[string]*regexp.Regexp
}

// NewTransformer compiles rules. Invalid regular expressions and unknown action
// types are rejected here rather than on the first row that hits them.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules: make(map[string][]config.TransformationAction),
		re:    make(map[string]*regexp.Regexp),
	}
	for _, rule := range rules {
		for _, action := range rule.Actions {
			if !knownActions[action.Type] {
				return nil, fmt.Errorf("field %q: unknown transformation type: %s", rule.Field, action.Type)
			}
			if action.Type == "regex_replace" && action.Find != "" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("field %q: invalid regex pattern: %w", rule.Field, err)
				}
				t.re[action.Find] = re
			}
		}
		t.rules[rule.Field] = append(t.rules[rule.Field], rule.Actions...)
	}
	return t, nil
}

var knownActions = map[string]bool{
	"prepend_string": true, "append_string": true,
	"trim": true, "uppercase": true, "lowercase": true, "normalize_whitespace": true,
	"pad_zeros_to_length": true, "replace": true, "regex_replace": true,
	"strip_currency": true, "format_number": true, "format_date": true,
	"lookup": true, "lookup_with_default": true, "if_empty_use_default": true,
}

// TransformRow applies every rule to row in place.
func (t *Transformer) TransformRow(row map[string]string) {
	for field, actions := range t.rules {
		value, exists := row[field]
		if !exists {
			continue
		}
		for _, action := range actions {
			value = t.apply(value, action)
		}
		row[field] = value
	}
}

// apply runs one action. Actions that cannot interpret the value leave it
// unchanged; validation reports the leftover later.
func (t *Transformer) apply(value string, action config.TransformationAction) string {
	switch action.Type {
	case "prepend_string":
		return action.Value + value
	case "append_string":
		return value + action.Value
	case "trim":
		return strings.TrimSpace(value)
	case "uppercase":
		return strings.ToUpper(value)
	case "lowercase":
		return strings.ToLower(value)
	case "normalize_whitespace":
		return collapseWhitespace(value)

	case "pad_zeros_to_length":
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 {
			return value
		}
		return PadLeft(value, n, '0')

	case "replace":
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case "regex_replace":
		re, ok := t.re[action.Find]
		if !ok {
			return value
		}
		return re.ReplaceAllString(value, action.Value)

	case "strip_currency":
		return currencyNoise.ReplaceAllString(value, "")

	case "format_number":
		decimals, err := strconv.Atoi(action.Value)
		if err != nil || decimals < 0 {
			return value
		}
		num, ok := ParseNumber(value)
		if !ok {
			return value
		}
		return strconv.FormatFloat(num, 'f', decimals, 64)

	case "format_date":
		// Value format: "input_layout|output_layout", Go reference layouts.
		in, out, found := strings.Cut(action.Value, "|")
		if !found {
			return value
		}
		parsed, err := time.Parse(strings.TrimSpace(in), value)
		if err != nil {
			return value
		}
		return parsed.Format(strings.TrimSpace(out))

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement
		}
		return value

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement
		}
		return action.Value

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value
	}
	return value
}

// PadLeft pads s on the left with padChar up to length.
func PadLeft(s string, length int, padChar rune) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-len(s)) + s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
