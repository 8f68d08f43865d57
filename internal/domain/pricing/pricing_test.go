package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorly/internal/domain/listings"
	"doorly/internal/domain/shared/daterange"
)

func sampleRates() listings.RateTable {
	return listings.RateTable{
		Daily:    1000,
		Weekly:   listings.Rate(6000),
		Monthly:  listings.Rate(20000),
		Currency: "USD",
	}
}

func TestLadder_TierExamples(t *testing.T) {
	cases := []struct {
		days  int
		total int64
		tier  Tier
	}{
		{5, 5000, TierDaily},
		{10, 9000, TierWeekly},
		{35, 25000, TierMonthly},
		{7, 6000, TierWeekly},
		{30, 20000, TierMonthly},
	}
	for _, tc := range cases {
		total, tier, _, err := Ladder(tc.days, sampleRates())
		require.NoError(t, err)
		assert.Equal(t, tc.total, total, "days=%d", tc.days)
		assert.Equal(t, tc.tier, tier, "days=%d", tc.days)
	}
}

func TestLadder_MissingTiersFallThrough(t *testing.T) {
	weeklyOnly := listings.RateTable{Daily: 1000, Weekly: listings.Rate(6000), Currency: "USD"}
	total, tier, _, err := Ladder(40, weeklyOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(5*6000+5*1000), total)
	assert.Equal(t, TierWeekly, tier)

	dailyOnly := listings.RateTable{Daily: 1000, Currency: "USD"}
	total, tier, _, err = Ladder(40, dailyOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), total)
	assert.Equal(t, TierDaily, tier)

	monthlyOnly := listings.RateTable{Daily: 1000, Monthly: listings.Rate(20000), Currency: "USD"}
	total, _, _, err = Ladder(37, monthlyOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(20000+7000), total)
}

func TestLadder_Errors(t *testing.T) {
	_, _, _, err := Ladder(3, listings.RateTable{Currency: "USD"})
	assert.ErrorIs(t, err, ErrRateMissing)

	_, _, _, err = Ladder(0, sampleRates())
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestLadder_LabelDescribesDecomposition(t *testing.T) {
	_, _, label, err := Ladder(38, sampleRates())
	require.NoError(t, err)
	assert.Equal(t, "1 month x 20000 + 1 week x 6000 + 1 day x 1000", label)
}

func TestQuote_FeeAndWaiver(t *testing.T) {
	dr, err := daterange.Parse("2026-03-01", "2026-03-10")
	require.NoError(t, err)

	charged := Calculator{FeeBasisPoints: 1000}
	q, err := charged.Quote(dr, sampleRates())
	require.NoError(t, err)
	assert.Equal(t, 10, q.Days)
	assert.Equal(t, int64(9000), q.Subtotal.Amount)
	assert.Equal(t, int64(900), q.FeeTotal())
	assert.Equal(t, int64(9900), q.Total.Amount)

	waived := Calculator{FeeBasisPoints: 1000, FeeWaived: true}
	q, err = waived.Quote(dr, sampleRates())
	require.NoError(t, err)
	assert.Equal(t, int64(900), q.FeeTotal())
	assert.Equal(t, int64(900), q.DiscountTotal())
	assert.Equal(t, int64(9000), q.Total.Amount)
	assert.Equal(t, "USD", q.Total.Currency)
}

func TestQuote_FeeRoundsHalfUp(t *testing.T) {
	dr, err := daterange.Parse("2026-03-01", "2026-03-01")
	require.NoError(t, err)
	q, err := Calculator{FeeBasisPoints: 1000}.Quote(dr, listings.RateTable{Daily: 1005, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), q.FeeTotal())
}

func TestQuote_RequiresCurrency(t *testing.T) {
	dr, err := daterange.Parse("2026-03-01", "2026-03-02")
	require.NoError(t, err)
	_, err = Calculator{}.Quote(dr, listings.RateTable{Daily: 1000})
	assert.ErrorIs(t, err, ErrCurrencyUnset)
}

func TestMonotonic_ConsistentTables(t *testing.T) {
	tables := []listings.RateTable{
		{Daily: 1000, Currency: "USD"},
		{Daily: 1000, Weekly: listings.Rate(6000), Currency: "USD"},
		{Daily: 1000, Weekly: listings.Rate(6000), Monthly: listings.Rate(26000), Currency: "USD"},
		{Daily: 700, Monthly: listings.Rate(20300), Currency: "USD"},
	}
	for _, rates := range tables {
		require.True(t, Monotonic(rates))
		prev := int64(0)
		for days := 1; days <= 120; days++ {
			total, _, _, err := Ladder(days, rates)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, total, prev, "days=%d rates=%+v", days, rates)
			prev = total
		}
	}
}

func TestMonotonic_DetectsCheaperLongerStays(t *testing.T) {
	// 29 days cost 4*6000 + 1000 = 25000, 30 days cost 20000.
	assert.False(t, Monotonic(sampleRates()))
	assert.False(t, Monotonic(listings.RateTable{Daily: 1000, Weekly: listings.Rate(5000), Currency: "USD"}))
	assert.False(t, Monotonic(listings.RateTable{Currency: "USD"}))
}
