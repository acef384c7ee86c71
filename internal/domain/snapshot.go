package domain

// StrategySnapshot is a saved strategy definition: the legs a user
// built for a symbol plus the base price they were built against.
type StrategySnapshot struct {
	SnapshotID  string
	Symbol      string
	Name        string
	Legs        []Leg
	BasePrice   float64
	CreatedAtMs int64 // unix milliseconds
}
