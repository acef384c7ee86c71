package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/marcomartin123/op/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(snapshot_id|symbol|frequency|base_capital|withdrawal|investment|apply_losses|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	snapshotID string,
	symbol string,
	freq domain.Frequency,
	baseCapital, monthlyWithdrawal, monthlyInvestment float64,
	applyLosses bool,
	createdAtMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%g|%g|%g|%t|%d",
		snapshotID,
		symbol,
		string(freq),
		baseCapital,
		monthlyWithdrawal,
		monthlyInvestment,
		applyLosses,
		createdAtMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
