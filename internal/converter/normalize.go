package converter

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// Normalize brings raw values to the payload contract:
//
//   - numeric keys become float64 when parseable
//   - gst becomes a bool when recognisable
//   - rqt_day and rqt_mth are zero-padded to 2 digits, rqt_yr widened to 4
//   - other strings are whitespace-collapsed and trimmed
//   - nil and empty values are dropped
//
// Values that cannot be brought into shape are kept as collapsed strings so
// validation can report them.
func Normalize(raw map[types.Key]any) types.Payload {
	p := make(types.Payload, len(raw))
	for key, v := range raw {
		if nv, ok := normalizeValue(key, v); ok {
			p[key] = nv
		}
	}
	return p
}

func normalizeValue(key types.Key, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		s = collapseWhitespace(s)
		if s == "" {
			return nil, false
		}
		v = s
	}

	switch {
	case types.NumericKeys[key]:
		if f, ok := toFloat(v); ok {
			return f, true
		}
	case types.BooleanKeys[key]:
		if b, ok := ParseBool(v); ok {
			return b, true
		}
	case key == types.KeyRqtDay || key == types.KeyRqtMonth:
		if n, ok := toInt(v); ok {
			return PadLeft(strconv.Itoa(n), 2, '0'), true
		}
	case key == types.KeyRqtYear:
		if n, ok := toInt(v); ok {
			if n < 100 {
				n += 2000
			}
			return strconv.Itoa(n), true
		}
	default:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		if n, ok := v.(json.Number); ok {
			return n.String(), true
		}
	}

	if n, ok := v.(json.Number); ok {
		return n.String(), true
	}
	return v, true
}

var decimalComma = regexp.MustCompile(`^-?\d+,\d{1,2}$`)

// ParseNumber reads amounts as suppliers and OCR write them: "1,234.50",
// "$12", "12,5", "(3.00)".
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = currencyNoise.ReplaceAllString(s, "")
	s = strings.Trim(s, "()")
	if s == "" {
		return 0, false
	}

	switch {
	case decimalComma.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// ParseBool recognises checkbox-ish values.
func ParseBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		return x != 0, true
	case json.Number:
		f, err := x.Float64()
		return f != 0, err == nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "t", "y", "yes", "x", "on", "checked", "gst":
			return true, true
		case "0", "false", "f", "n", "no", "off", "-", "none":
			return false, true
		}
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		return ParseNumber(x)
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f < 0 {
		return 0, false
	}
	return int(f), true
}
