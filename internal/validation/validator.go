// =============================================================================
// Line-Item Autofill - Validation Engine
// =============================================================================
//
// Checks payloads against the producer contract before they reach the host
// form. Filling tolerates most of these problems (unknown keys are ignored,
// nil values skipped), so only contract breaks that would write wrong data
// into the form are errors:
//   - numeric keys that are not numbers
//   - gst that is not a boolean
//   - request-date parts that are out of range or do not form a date
//
// Everything else (unknown keys, empty items, an amount that disagrees with
// qty and unit_price) is a warning.
//
// Errors are collected, never returned early unless StopOnFirstError is set.
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError is a single finding on one payload.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Key is the semantic key the finding is about; empty for item-level findings.
	Key types.Key

	// Value is the offending value, formatted.
	Value string

	// Rule names the check that failed.
	Rule string

	// Message is a human-readable description.
	Message string

	// Item is the 1-based position of the payload in its batch.
	Item int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("[%s] Item %d: %s", strings.ToUpper(e.Severity), e.Item, e.Message)
	}
	return fmt.Sprintf("[%s] Item %d, Key '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), e.Item, e.Key, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarises a batch.
type ValidationResult struct {
	// IsValid is true if there are no errors (and, with
	// TreatWarningsAsErrors, no warnings).
	IsValid bool

	// Errors holds every finding, warnings included, in item order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// ItemsValidated is the number of payloads checked.
	ItemsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions tunes a Validator.
type ValidationOptions struct {
	// StopOnFirstError stops after the first error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the batch.
	TreatWarningsAsErrors bool

	// AmountTolerance is the absolute difference allowed between amount and
	// qty * unit_price (after discount). Default: 0.01
	AmountTolerance float64
}

// DefaultValidationOptions returns the default options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{AmountTolerance: 0.01}
}

// Validator validates payloads.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks a batch with default options and returns every finding.
func Validate(payloads []types.Payload) []*ValidationError {
	return NewValidator().ValidateAll(payloads).Errors
}

// ValidateAll checks a batch and returns a detailed result.
func (v *Validator) ValidateAll(payloads []types.Payload) *ValidationResult {
	result := &ValidationResult{
		IsValid:        true,
		Errors:         make([]*ValidationError, 0),
		ItemsValidated: len(payloads),
	}

	for i, p := range payloads {
		for _, err := range v.ValidatePayload(i+1, p) {
			result.Errors = append(result.Errors, err)

			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
				if v.options.StopOnFirstError {
					return result
				}
				continue
			}

			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}
	return result
}

// ValidatePayload checks one payload. item is its 1-based position, used only
// for reporting. Findings come out in fill order, unknown keys last.
func (v *Validator) ValidatePayload(item int, p types.Payload) []*ValidationError {
	var errs []*ValidationError
	add := func(severity string, key types.Key, value any, rule, msg string) {
		errs = append(errs, &ValidationError{
			Severity: severity,
			Key:      key,
			Value:    formatValue(value),
			Rule:     rule,
			Message:  msg,
			Item:     item,
		})
	}

	present := 0
	for _, key := range types.FillOrder {
		if !p.Present(key) {
			continue
		}
		present++
		value := p[key]

		switch {
		case types.NumericKeys[key]:
			if _, ok := asFloat(value); !ok {
				add(SeverityError, key, value, "numeric", "not a number")
			}
		case types.BooleanKeys[key]:
			if _, ok := value.(bool); !ok {
				add(SeverityError, key, value, "boolean", "not a boolean")
			}
		case key == types.KeyRqtDay:
			if !inRange(value, 2, 1, 31) {
				add(SeverityError, key, value, "date_part", "day must be 01-31")
			}
		case key == types.KeyRqtMonth:
			if !inRange(value, 2, 1, 12) {
				add(SeverityError, key, value, "date_part", "month must be 01-12")
			}
		case key == types.KeyRqtYear:
			if !inRange(value, 4, 1900, 2999) {
				add(SeverityError, key, value, "date_part", "year must have 4 digits")
			}
		default:
			if _, ok := value.(bool); ok {
				add(SeverityWarning, key, value, "text", "boolean in a text field")
			}
		}
	}

	if present == 0 {
		add(SeverityWarning, "", nil, "empty", "no known keys carry a value")
	}

	if msg, ok := v.checkRequestDate(p); !ok {
		add(SeverityError, types.KeyRqtDay, dateString(p), "date", msg)
	}
	if msg, ok := v.checkAmount(p); !ok {
		add(SeverityWarning, types.KeyAmount, p[types.KeyAmount], "amount", msg)
	}

	var unknown []string
	for key := range p {
		if !types.IsKnown(key) {
			unknown = append(unknown, string(key))
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		add(SeverityWarning, types.Key(key), p[types.Key(key)], "unknown_key", "unknown key is ignored during fill")
	}

	return errs
}

// =============================================================================
// CROSS-FIELD CHECKS
// =============================================================================

// checkRequestDate rejects dates like 31/02 when all three parts are valid.
func (v *Validator) checkRequestDate(p types.Payload) (string, bool) {
	d, dok := asInt(p[types.KeyRqtDay])
	m, mok := asInt(p[types.KeyRqtMonth])
	y, yok := asInt(p[types.KeyRqtYear])
	if !dok || !mok || !yok || d < 1 || d > 31 || m < 1 || m > 12 {
		return "", true
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return fmt.Sprintf("%04d-%02d-%02d is not a calendar date", y, m, d), false
	}
	return "", true
}

// checkAmount compares amount with qty * unit_price, less disc_pct.
func (v *Validator) checkAmount(p types.Payload) (string, bool) {
	qty, qok := asFloat(p[types.KeyQty])
	price, pok := asFloat(p[types.KeyUnitPrice])
	amount, aok := asFloat(p[types.KeyAmount])
	if !qok || !pok || !aok {
		return "", true
	}
	expected := qty * price
	if disc, ok := asFloat(p[types.KeyDiscPct]); ok {
		expected *= 1 - disc/100
	}
	if math.Abs(expected-amount) > v.options.AmountTolerance {
		return fmt.Sprintf("amount differs from qty x unit_price (%.2f)", expected), false
	}
	return "", true
}

// =============================================================================
// HELPERS
// =============================================================================

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// inRange reports whether v is a string of exactly width digits within
// [lo, hi].
func inRange(v any, width, lo, hi int) bool {
	s, ok := v.(string)
	if !ok || len(s) != width {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= lo && n <= hi
}

func dateString(p types.Payload) string {
	return fmt.Sprintf("%v/%v/%v", p[types.KeyRqtDay], p[types.KeyRqtMonth], p[types.KeyRqtYear])
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
