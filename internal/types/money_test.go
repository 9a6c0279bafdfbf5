package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"10.005":  "10.01",
		"-10.005": "-10.01",
		"10.004":  "10.00",
		"0.125":   "0.13",
		"-0.125":  "-0.13",
		"99.999":  "100.00",
	}

	for in, want := range cases {
		d, err := decimal.NewFromString(in)
		require.NoError(t, err)
		assert.Equal(t, want, Round2(d).StringFixed(2), "Round2(%s)", in)
	}
}

func TestRound2Idempotent(t *testing.T) {
	values := []string{"10.005", "-3.333", "0.01", "123456.789", "-0.005", "0"}

	for _, v := range values {
		d, err := decimal.NewFromString(v)
		require.NoError(t, err)

		once := Round2(d)
		twice := Round2(once)
		assert.True(t, once.Equal(twice), "Round2(Round2(%s)) = %s, want %s", v, twice, once)
	}
}

func TestCost(t *testing.T) {
	price, err := decimal.NewFromString("10.00")
	require.NoError(t, err)

	assert.Equal(t, "50.00", Cost(price, 5).StringFixed(2))
	assert.Equal(t, "30.00", Cost(price, 3).StringFixed(2))
	assert.Equal(t, "0.00", Cost(price, 0).StringFixed(2))
}
