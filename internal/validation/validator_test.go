package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lineitem-autofill/internal/types"
)

func rules(errs []*ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Severity + ":" + string(e.Key) + ":" + e.Rule
	}
	return out
}

func TestValidatePayload_Clean(t *testing.T) {
	p := types.Payload{
		types.KeyCode:      "A-1",
		types.KeyQty:       2.0,
		types.KeyUnitPrice: 10.0,
		types.KeyDiscPct:   10.0,
		types.KeyAmount:    18.0,
		types.KeyGST:       true,
		types.KeyRqtDay:    "29",
		types.KeyRqtMonth:  "02",
		types.KeyRqtYear:   "2024",
	}
	assert.Empty(t, NewValidator().ValidatePayload(1, p))
}

func TestValidatePayload_ContractBreaks(t *testing.T) {
	p := types.Payload{
		types.KeyQty:      "two",
		types.KeyGST:      "maybe",
		types.KeyRqtDay:   "32",
		types.KeyRqtMonth: "1",
		types.KeyRqtYear:  "24",
		types.KeyBrand:    true,
		"colour":          "red",
	}
	errs := NewValidator().ValidatePayload(3, p)

	assert.Equal(t, []string{
		"warning:brand:text",
		"error:qty:numeric",
		"error:gst:boolean",
		"error:rqt_day:date_part",
		"error:rqt_mth:date_part",
		"error:rqt_yr:date_part",
		"warning:colour:unknown_key",
	}, rules(errs))
	assert.Equal(t, 3, errs[1].Item)
	assert.Equal(t, "[ERROR] Item 3, Key 'qty': not a number (value: 'two')", errs[1].Error())
}

func TestValidatePayload_CrossField(t *testing.T) {
	p := types.Payload{
		types.KeyQty:       3.0,
		types.KeyUnitPrice: 2.5,
		types.KeyAmount:    9.0,
		types.KeyRqtDay:    "31",
		types.KeyRqtMonth:  "04",
		types.KeyRqtYear:   "2025",
	}
	errs := NewValidator().ValidatePayload(1, p)
	assert.Equal(t, []string{"error:rqt_day:date", "warning:amount:amount"}, rules(errs))
	assert.Contains(t, errs[0].Message, "2025-04-31")
}

func TestValidatePayload_EmptyItem(t *testing.T) {
	errs := NewValidator().ValidatePayload(7, types.Payload{types.KeyCode: nil})
	require.Len(t, errs, 1)
	assert.Equal(t, "[WARNING] Item 7: no known keys carry a value", errs[0].Error())
}

func TestValidateAll(t *testing.T) {
	batch := []types.Payload{
		{types.KeyCode: "A"},
		{types.KeyQty: "x", types.KeyGST: 1},
		{"extra": 1.0, types.KeyCode: "C"},
	}

	res := NewValidator().ValidateAll(batch)
	assert.False(t, res.IsValid)
	assert.Equal(t, 2, res.ErrorCount)
	assert.Equal(t, 1, res.WarningCount)
	assert.Equal(t, 3, res.ItemsValidated)

	stop := NewValidatorWithOptions(ValidationOptions{StopOnFirstError: true}).ValidateAll(batch)
	assert.Len(t, stop.Errors, 1)

	strict := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true}).
		ValidateAll([]types.Payload{{"extra": 1.0, types.KeyCode: "C"}})
	assert.False(t, strict.IsValid)
	assert.Equal(t, 0, strict.ErrorCount)

	assert.Len(t, Validate(batch), 3)
}
