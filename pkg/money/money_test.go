package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	require.Equal(t, "0.03", Round(decimal.RequireFromString("0.025")).StringFixed(2))
	require.Equal(t, "10.00", Round(decimal.RequireFromString("9.999")).StringFixed(2))
}

func TestPercentKeepsPrecision(t *testing.T) {
	got := Percent(decimal.RequireFromString("0.05"), decimal.NewFromInt(50))
	require.True(t, got.Equal(decimal.RequireFromString("0.025")), "got %s", got)
}

func TestHasCurrencyScale(t *testing.T) {
	require.True(t, HasCurrencyScale(decimal.RequireFromString("60.10")))
	require.False(t, HasCurrencyScale(decimal.RequireFromString("60.105")))
}

func TestCents(t *testing.T) {
	require.Equal(t, int64(6001), Cents(decimal.RequireFromString("60.005")))
}
