package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigMergesOntoDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"labels": {"name": "Tu nombre"},
		"enableShipping": true,
		"customShippingRates": [
			{"name": "Zona metro", "price": "150", "deliveryDays": 2},
			{"name": "Interior", "price": 250.5, "deliveryDays": "3-5"}
		],
		"enableCodFee": true,
		"codFeeType": "PERCENTAGE",
		"codFeeAmount": "5"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Tu nombre", cfg.Label(FieldName))
	assert.Equal(t, "Teléfono", cfg.Label(FieldPhone))
	assert.Equal(t, CODFeePercentage, cfg.CODFeeType)
	assert.True(t, dec("5").Equal(cfg.CODFeeAmount.Decimal))
	require.Len(t, cfg.CustomShippingRates, 2)
	assert.Equal(t, "2", cfg.CustomShippingRates[0].DeliveryDays)
	assert.True(t, dec("250.5").Equal(cfg.CustomShippingRates[1].Price.Decimal))
	assert.Equal(t, "3-5", cfg.CustomShippingRates[1].DeliveryDays)
	assert.Equal(t, "DO", cfg.DefaultCountry)
	assert.True(t, cfg.ShouldAutoRedirect())
	assert.Equal(t, 1500*time.Millisecond, cfg.RedirectAfter())
}

func TestParseConfigMalformedNumbersBecomeZero(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"enableCodFee": true,
		"codFeeAmount": "gratis",
		"freeShippingThreshold": null,
		"minOrderAmount": true,
		"maxOrderAmount": "-50",
		"redirectDelay": ""
	}`))
	require.NoError(t, err)

	assert.True(t, cfg.CODFeeAmount.IsZero())
	assert.True(t, cfg.FreeShippingThreshold.IsZero())
	assert.True(t, cfg.MinOrderAmount.IsZero())
	assert.True(t, cfg.MaxOrderAmount.IsZero(), "negative amounts are clamped")
	assert.Equal(t, time.Duration(0), cfg.RedirectAfter())
}

func TestParseConfigInvalidJSONFallsBackToDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"enableShipping": tru`))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigWrongTypeKeepsOtherFields(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"enablePickup": "yes", "pickupName": "Local Naco"}`))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.False(t, cfg.EnablePickup)
	assert.Equal(t, "Local Naco", cfg.PickupName)
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestAutoRedirectOnlyDisabledExplicitly(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"autoRedirectWhatsApp": null}`))
	require.NoError(t, err)
	assert.True(t, cfg.ShouldAutoRedirect())

	cfg, err = ParseConfig([]byte(`{"autoRedirectWhatsApp": false, "redirectDelay": 3000}`))
	require.NoError(t, err)
	assert.False(t, cfg.ShouldAutoRedirect())
	assert.Equal(t, 3*time.Second, cfg.RedirectAfter())
}

func TestNormalizeUnknownFeeType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CODFeeType = "per-item"
	cfg.CustomFields = []CustomField{{ID: "x", Type: "color-picker"}}
	cfg.Normalize()
	assert.Equal(t, CODFeeFixed, cfg.CODFeeType)
	assert.Equal(t, TypeText, cfg.CustomFields[0].Type)
}

func TestVisibilityAndRequiredness(t *testing.T) {
	cfg := DefaultConfig()
	for _, id := range []string{FieldName, FieldPhone, FieldAddress} {
		assert.True(t, cfg.Visible(id), id)
		assert.True(t, cfg.IsRequired(id), id)
	}

	cfg.Fields.ShowNotes = false
	cfg.Required.Notes = true
	assert.False(t, cfg.IsRequired(FieldNotes))

	cfg.Fields.ShowNotes = true
	assert.True(t, cfg.IsRequired(FieldNotes))
	assert.False(t, cfg.IsRequired("unknown"))
}

func TestNumberJSON(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": " 7 ", "c": {"x": 1}}`), &v))
	assert.Equal(t, "12.5", v.A.String())
	assert.Equal(t, "7", v.B.String())
	assert.True(t, v.C.IsZero())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 12.5, "b": 7, "c": 0}`, string(out))
}
