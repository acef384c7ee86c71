package domain

// PayoffCurve tabulates strategy profit against percentage moves from a
// base price. Variations and Returns are parallel slices; both are empty
// when the curve was built from no legs or an invalid base price. A curve
// is built once per (legs, base price) pair and never mutated afterward.
type PayoffCurve struct {
	BasePrice float64

	// Variations holds percentage moves from BasePrice, ascending.
	Variations []float64

	// Returns holds strategy profit in currency at each move.
	Returns []float64
}

// Empty reports whether the curve holds no sampled points.
func (c *PayoffCurve) Empty() bool {
	return len(c.Variations) == 0
}

// PriceAt converts a percentage move into an absolute price.
func (c *PayoffCurve) PriceAt(movePct float64) float64 {
	return c.BasePrice * (1 + movePct/100)
}
