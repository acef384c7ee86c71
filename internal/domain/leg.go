package domain

// Instrument identifies what a strategy leg holds.
type Instrument string

// Instrument constants.
const (
	InstrumentOption     Instrument = "OPTION"
	InstrumentUnderlying Instrument = "UNDERLYING"
)

// Side identifies the direction of a leg.
type Side string

// Side constants.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OptionType identifies the option contract type.
type OptionType string

// OptionType constants.
const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// DefaultContractSize is the conventional shares-per-contract multiplier
// applied when a leg carries no explicit contract size.
const DefaultContractSize = 100.0

// Leg represents one position within a multi-leg strategy.
// Legs are constructed by the strategy-builder layer and never mutated
// by the engine. A strategy builder may transiently hold incomplete
// option legs (no type or no strike yet); those are valid values that
// simply price to zero.
type Leg struct {
	Instrument Instrument `json:"instrument"`
	Side       Side       `json:"side"`

	// OptionType and Strike apply only to OPTION legs. An empty type or
	// non-positive strike marks the leg as not yet fully configured.
	OptionType OptionType `json:"optionType,omitempty"`
	Strike     float64    `json:"strike,omitempty"`

	// Premium is the option premium per unit for OPTION legs, or the
	// entry price for UNDERLYING legs.
	Premium float64 `json:"premium"`

	Quantity int `json:"quantity"`

	// ContractSize is the per-contract multiplier. Non-positive values
	// fall back to DefaultContractSize.
	ContractSize float64 `json:"contractSize,omitempty"`
}

// Multiplier returns quantity times the effective contract size.
func (l *Leg) Multiplier() float64 {
	size := l.ContractSize
	if size <= 0 {
		size = DefaultContractSize
	}
	return float64(l.Quantity) * size
}

// Configured reports whether the leg carries enough fields to be priced.
// UNDERLYING legs are always priceable; OPTION legs need a type and strike.
func (l *Leg) Configured() bool {
	if l.Instrument != InstrumentOption {
		return true
	}
	return (l.OptionType == OptionCall || l.OptionType == OptionPut) && l.Strike > 0
}
