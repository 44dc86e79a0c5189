package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		code    string
		want    Currency
		wantErr bool
	}{
		{code: "INR", want: INR},
		{code: "EUR", want: EUR},
		{code: "USD", wantErr: true},
		{code: "inr", wantErr: true},
		{code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseCurrency(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedCurrency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewConverter_RejectsNonPositiveRate(t *testing.T) {
	_, err := NewConverter(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewConverterFromString("-1")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewConverterFromString("not-a-rate")
	assert.Error(t, err)
}

func TestConvert_INRToEUR(t *testing.T) {
	conv, err := NewConverterFromString("104.5")
	require.NoError(t, err)

	got, err := conv.Convert(mustDecimal(t, "10450"), INR, EUR)
	require.NoError(t, err)
	assert.True(t, got.Equal(mustDecimal(t, "100.00")), "got %s", got)
}

func TestConvert_EURToINR(t *testing.T) {
	conv, err := NewConverterFromString("104.5")
	require.NoError(t, err)

	got, err := conv.Convert(mustDecimal(t, "100"), EUR, INR)
	require.NoError(t, err)
	assert.True(t, got.Equal(mustDecimal(t, "10450.00")), "got %s", got)
}

func TestConvert_SameCurrencyPassesThrough(t *testing.T) {
	conv, err := NewConverterFromString("104.5")
	require.NoError(t, err)

	got, err := conv.Convert(mustDecimal(t, "123.456"), EUR, EUR)
	require.NoError(t, err)
	assert.Equal(t, "123.46", got.StringFixed(2))
}

func TestConvert_UnsupportedCurrency(t *testing.T) {
	conv, err := NewConverterFromString("104.5")
	require.NoError(t, err)

	_, err = conv.Convert(decimal.NewFromInt(10), "USD", EUR)
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = conv.Convert(decimal.NewFromInt(10), EUR, "GBP")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestToBase_DividesINRByRate(t *testing.T) {
	conv, err := NewConverterFromString("104.5")
	require.NoError(t, err)

	got, err := conv.ToBase(mustDecimal(t, "1045"), INR)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.StringFixed(2))

	got, err = conv.ToBase(mustDecimal(t, "250"), EUR)
	require.NoError(t, err)
	assert.Equal(t, "250.00", got.StringFixed(2))
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Round(mustDecimal(t, tt.in))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}
