package backtest

import (
	"math"
	"testing"
	"time"
)

func clockDate(year int, month time.Month) time.Time {
	return time.Date(year, month, 10, 0, 0, 0, 0, time.UTC)
}

func TestLossClock_OriginNeverFires(t *testing.T) {
	c := newLossClock()
	if pct := c.advance(clockDate(2021, time.June)); pct != 0 {
		t.Errorf("first period establishes the origin, got %f", pct)
	}
}

func TestLossClock_FiresOnSchedule(t *testing.T) {
	c := newLossClock()
	c.advance(clockDate(2021, time.January)) // origin, month 1

	cases := []struct {
		year  int
		month time.Month
		want  float64
	}{
		{2021, time.February, 0},                          // month 2
		{2021, time.June, lossBasePct},                    // month 6
		{2021, time.October, 0},                           // month 10: not a multiple of 6
		{2021, time.December, lossBasePct},                // month 12
		{2023, time.June, lossBasePct + lossExtraPct},     // month 30: multiple of 6 and 10
	}
	for _, tc := range cases {
		if got := c.advance(clockDate(tc.year, tc.month)); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%d-%v: expected %f, got %f", tc.year, tc.month, tc.want, got)
		}
	}
}

func TestLossClock_FiresOncePerClockMonth(t *testing.T) {
	c := newLossClock()
	c.advance(clockDate(2021, time.January))

	first := c.advance(time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC))
	second := c.advance(time.Date(2021, time.June, 20, 0, 0, 0, 0, time.UTC))

	if first != lossBasePct {
		t.Errorf("expected 0.02 on the first June period, got %f", first)
	}
	if second != 0 {
		t.Errorf("a clock-month fires at most once, got %f", second)
	}
}
