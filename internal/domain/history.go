package domain

import "time"

// PriceSample is one raw close observation for a symbol, as stored.
type PriceSample struct {
	Symbol      string
	TimestampMs int64 // unix milliseconds
	Close       float64
}

// Time returns the sample timestamp as a time.Time in UTC.
func (p *PriceSample) Time() time.Time {
	return time.UnixMilli(p.TimestampMs).UTC()
}

// HistoryPoint is one resampled price observation carrying its
// period-over-period return. ReturnPct is close[i]/close[i-1] − 1 as a
// fraction; it is nil on the first point of a series, which has no
// prior sample to compare against.
type HistoryPoint struct {
	Time      time.Time
	Close     float64
	ReturnPct *float64
}
