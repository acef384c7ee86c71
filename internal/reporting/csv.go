package reporting

import (
	"fmt"
	"strings"

	"github.com/marcomartin123/op/internal/domain"
)

// RenderCSV renders the equity curve rows as CSV string.
func RenderCSV(rows []domain.BacktestRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,asset_return,strategy_return,profit,withdrawal,investment,capital,loss_event\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%t\n",
			r.Time.Format("2006-01-02"),
			r.AssetReturn,
			r.StrategyReturn,
			r.Profit,
			r.Withdrawal,
			r.Investment,
			r.Capital,
			r.LossEvent,
		))
	}

	return sb.String()
}
