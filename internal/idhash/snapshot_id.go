package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/marcomartin123/op/internal/domain"
)

// ComputeSnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(symbol|name|leg1|leg2|...|base_price|created_at_ms)
// where each leg encodes as instrument:side:type:strike:premium:quantity.
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotID(symbol, name string, legs []domain.Leg, basePrice float64, createdAtMs int64) string {
	parts := make([]string, 0, len(legs)+3)
	parts = append(parts, symbol, name)
	for _, l := range legs {
		parts = append(parts, fmt.Sprintf("%s:%s:%s:%g:%g:%d",
			l.Instrument, l.Side, l.OptionType, l.Strike, l.Premium, l.Quantity))
	}
	parts = append(parts, fmt.Sprintf("%g|%d", basePrice, createdAtMs))

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
