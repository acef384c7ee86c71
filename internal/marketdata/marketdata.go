// Package marketdata streams live quotes over a websocket feed.
package marketdata

import "context"

// QuoteClient defines the live quote subscription interface.
type QuoteClient interface {
	// Subscribe subscribes to quotes for a symbol.
	Subscribe(ctx context.Context, symbol string) (<-chan Quote, error)

	// Close closes the websocket connection.
	Close() error
}

// Quote is one price update for a symbol.
type Quote struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	TimestampMs int64   `json:"timestampMs"`
}
