package dto

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntDecimalStringRoundTrip(t *testing.T) {
	var b BigInt
	require.NoError(t, json.Unmarshal([]byte(`"1000000000000000000000"`), &b))
	assert.Equal(t, "1000000000000000000000", b.String())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `"1000000000000000000000"`, string(out))
}

func TestBigIntAcceptsBareNumber(t *testing.T) {
	var b BigInt
	require.NoError(t, json.Unmarshal([]byte(`42`), &b))
	assert.Equal(t, "42", b.String())
}

func TestBigIntRejectsInvalid(t *testing.T) {
	for _, raw := range []string{`"-1"`, `"1.5"`, `"0x10"`, `""`, `"abc"`, `null`} {
		var b BigInt
		assert.Error(t, json.Unmarshal([]byte(raw), &b), "input %s", raw)
	}
}

func TestFractionOrAmountAbsolute(t *testing.T) {
	var f FractionOrAmount
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"500"}`), &f))
	require.True(t, f.IsAbsolute())
	assert.Equal(t, "500", f.Amount.String())
}

func TestFractionOrAmountProportional(t *testing.T) {
	var f FractionOrAmount
	require.NoError(t, json.Unmarshal([]byte(`{"fraction":"11","units":"1000"}`), &f))
	require.False(t, f.IsAbsolute())
	assert.Equal(t, "11", f.Fraction.String())
	assert.Equal(t, "1000", f.Units.String())
}

func TestFractionOrAmountDefaultUnits(t *testing.T) {
	var f FractionOrAmount
	require.NoError(t, json.Unmarshal([]byte(`{"fraction":"25"}`), &f))
	require.False(t, f.IsAbsolute())
	assert.Equal(t, "100", f.Units.String(), "bare fractions read as percentages")
}

func TestFractionOrAmountRejectsAmbiguousShapes(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"amount":"1","fraction":"2"}`,
		`{"units":"100"}`,
	} {
		var f FractionOrAmount
		assert.Error(t, json.Unmarshal([]byte(raw), &f), "input %s", raw)
	}
}

func TestDisperseEthRequestDecode(t *testing.T) {
	raw := `{
		"caller": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"recipients": {
			"0x1111111111111111111111111111111111111111": {"amount": "500000000000000000"},
			"0x2222222222222222222222222222222222222222": {"fraction": "11", "units": "1000"}
		}
	}`

	var req DisperseEthRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), req.Caller)
	require.Len(t, req.Recipients, 2)

	abs := req.Recipients[common.HexToAddress("0x1111111111111111111111111111111111111111")]
	require.True(t, abs.IsAbsolute())
	assert.Equal(t, "500000000000000000", abs.Amount.String())

	prop := req.Recipients[common.HexToAddress("0x2222222222222222222222222222222222222222")]
	require.False(t, prop.IsAbsolute())
	assert.Equal(t, "11", prop.Fraction.String())
}
