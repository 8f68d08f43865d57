package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, start, end string) DateRange {
	t.Helper()
	dr, err := Parse(start, end)
	require.NoError(t, err)
	return dr
}

func TestParse_NormalizesToCalendarDays(t *testing.T) {
	local := time.FixedZone("ART", -3*60*60)
	dr, err := New(time.Date(2026, 3, 1, 23, 30, 0, 0, local), time.Date(2026, 3, 2, 1, 0, 0, 0, local))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), dr.End)
	assert.Equal(t, 2, dr.Days())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("2026-03-05", "2026-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Parse("", "2026-03-01")
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = Parse("03/01/2026", "2026-03-01")
	assert.Error(t, err)
}

func TestDays_Inclusive(t *testing.T) {
	assert.Equal(t, 1, mustParse(t, "2026-03-01", "2026-03-01").Days())
	assert.Equal(t, 5, mustParse(t, "2026-03-01", "2026-03-05").Days())
	assert.Equal(t, 35, mustParse(t, "2026-01-01", "2026-02-04").Days())
}

func TestOverlaps_InclusiveBoundaries(t *testing.T) {
	base := mustParse(t, "2026-03-10", "2026-03-15")

	cases := []struct {
		name     string
		other    DateRange
		strict   bool
		turnover bool
	}{
		{"disjoint before", mustParse(t, "2026-03-01", "2026-03-09"), false, false},
		{"disjoint after", mustParse(t, "2026-03-16", "2026-03-20"), false, false},
		{"touching at end", mustParse(t, "2026-03-15", "2026-03-18"), true, false},
		{"touching at start", mustParse(t, "2026-03-05", "2026-03-10"), true, false},
		{"contained", mustParse(t, "2026-03-11", "2026-03-12"), true, true},
		{"identical", base, true, true},
		{"single day on start", mustParse(t, "2026-03-10", "2026-03-10"), true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.strict, base.Overlaps(tc.other, false))
			assert.Equal(t, tc.strict, tc.other.Overlaps(base, false))
			assert.Equal(t, tc.turnover, base.Overlaps(tc.other, true))
			assert.Equal(t, tc.turnover, tc.other.Overlaps(base, true))
		})
	}
}

func TestContainsDayAndDayAfterEnd(t *testing.T) {
	dr := mustParse(t, "2026-02-20", "2026-02-28")
	assert.True(t, dr.ContainsDay(time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)))
	assert.False(t, dr.ContainsDay(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), dr.DayAfterEnd())
	assert.Equal(t, "2026-02-20..2026-02-28", dr.String())
}
