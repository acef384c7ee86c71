package backtest

import "time"

// Synthetic stress-loss schedule. The thresholds and magnitudes are
// product policy constants with no derivation behind them; do not
// assume they generalize.
const (
	lossEveryMonths      = 6
	lossExtraEveryMonths = 10
	lossBasePct          = 0.02
	lossExtraPct         = 0.09
	lossCapPct           = 0.99
)

// lossClock tracks which clock-months have already fired a synthetic
// loss. The origin is the calendar (year, month) of the first real
// period; month counts are 1-indexed from there and each clock-month
// fires at most once. The clock is threaded through the simulation
// fold as an explicit accumulator so the simulator stays a pure
// function of its inputs.
type lossClock struct {
	started     bool
	originYear  int
	originMonth time.Month
	fired       map[int]bool
}

func newLossClock() *lossClock {
	return &lossClock{fired: make(map[int]bool)}
}

// advance moves the clock to t and returns the loss fraction to apply
// this period, or zero when the schedule does not fire. The first call
// establishes the origin and never fires.
func (c *lossClock) advance(t time.Time) float64 {
	if !c.started {
		c.started = true
		c.originYear = t.Year()
		c.originMonth = t.Month()
		return 0
	}

	months := (t.Year()-c.originYear)*12 + int(t.Month()) - int(c.originMonth) + 1
	if months < 1 || c.fired[months] {
		return 0
	}

	pct := 0.0
	if months%lossEveryMonths == 0 {
		pct = lossBasePct
		if months%lossExtraEveryMonths == 0 {
			pct += lossExtraPct
		}
	}
	if pct == 0 {
		return 0
	}
	if pct > lossCapPct {
		pct = lossCapPct
	}

	c.fired[months] = true
	return pct
}
