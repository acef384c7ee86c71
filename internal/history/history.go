// Package history prepares raw close series for the backtest
// simulator: canonical ordering, weekly/monthly resampling, and
// period-over-period return derivation.
package history

import (
	"sort"

	"github.com/marcomartin123/op/internal/domain"
)

// SortSamples orders a close series ascending by timestamp, breaking
// ties by symbol. Sorting is in place.
func SortSamples(samples []*domain.PriceSample) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].TimestampMs != samples[j].TimestampMs {
			return samples[i].TimestampMs < samples[j].TimestampMs
		}
		return samples[i].Symbol < samples[j].Symbol
	})
}

// Resample reduces a close series to the last observation of each ISO
// week or calendar month. Input must be ascending by time; output
// preserves that order.
func Resample(samples []*domain.PriceSample, freq domain.Frequency) []*domain.PriceSample {
	if len(samples) == 0 {
		return nil
	}

	var result []*domain.PriceSample
	current := samples[0]
	currentKey := periodKey(current, freq)
	for _, s := range samples[1:] {
		key := periodKey(s, freq)
		if key != currentKey {
			result = append(result, current)
			currentKey = key
		}
		current = s
	}
	return append(result, current)
}

// periodKey buckets a sample into its ISO week or calendar month.
func periodKey(s *domain.PriceSample, freq domain.Frequency) int {
	t := s.Time()
	if freq == domain.FrequencyWeekly {
		year, week := t.ISOWeek()
		return year*100 + week
	}
	return t.Year()*100 + int(t.Month())
}

// Points derives HistoryPoints from a resampled close series. The
// return of each point is close[i]/close[i-1] − 1 as a fraction; the
// first point, and any point whose predecessor has a non-positive
// close, carries a nil return.
func Points(samples []*domain.PriceSample) []domain.HistoryPoint {
	points := make([]domain.HistoryPoint, 0, len(samples))
	for i, s := range samples {
		p := domain.HistoryPoint{Time: s.Time(), Close: s.Close}
		if i > 0 && samples[i-1].Close > 0 {
			ret := s.Close/samples[i-1].Close - 1
			p.ReturnPct = &ret
		}
		points = append(points, p)
	}
	return points
}
