package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Symbol: %s | Strategy: %s | Frequency: %s\n\n",
		r.Symbol, r.StrategyName, r.Frequency))

	// Legs
	sb.WriteString("## Legs\n\n")
	if len(r.Legs) > 0 {
		sb.WriteString("| Instrument | Side | Type | Strike | Premium | Qty |\n")
		sb.WriteString("|------------|------|------|--------|---------|-----|\n")
		for _, l := range r.Legs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.2f | %d |\n",
				l.Instrument, l.Side, l.OptionType, l.Strike, l.Premium, l.Quantity))
		}
	} else {
		sb.WriteString("No legs.\n")
	}
	sb.WriteString("\n")

	// Payoff statistics
	sb.WriteString("## Payoff Statistics\n\n")
	if r.Stats != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Base Price | %.2f |\n", r.BasePrice))
		sb.WriteString(fmt.Sprintf("| Net Premium | %.2f |\n", r.Stats.NetPremium))
		sb.WriteString(fmt.Sprintf("| Max Profit | %s |\n", r.Stats.MaxProfit.String()))
		sb.WriteString(fmt.Sprintf("| Max Loss | %s |\n", r.Stats.MaxLoss.String()))
		if len(r.Stats.BreakEvens) > 0 {
			parts := make([]string, len(r.Stats.BreakEvens))
			for i, be := range r.Stats.BreakEvens {
				parts[i] = fmt.Sprintf("%.4f%%", be)
			}
			sb.WriteString(fmt.Sprintf("| Break-Evens | %s |\n", strings.Join(parts, ", ")))
		} else {
			sb.WriteString("| Break-Evens | none |\n")
		}
		if r.Stats.CapitalAtRisk != nil {
			sb.WriteString(fmt.Sprintf("| Capital At Risk | %.2f |\n", *r.Stats.CapitalAtRisk))
		}
	} else {
		sb.WriteString("No payoff statistics available.\n")
	}
	sb.WriteString("\n")

	// Summary metrics
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", r.Metrics.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital | %.2f |\n", r.Metrics.FinalCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital (net of cash flows) | %.2f |\n", r.Metrics.FinalCapitalNet))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", r.Metrics.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| Monthly Rate | %.4f |\n", r.Metrics.MonthlyRate))
	sb.WriteString(fmt.Sprintf("| Monthly IRR | %.4f |\n", r.Metrics.MonthlyIRR))
	sb.WriteString(fmt.Sprintf("| Periods | %d |\n", r.Metrics.Periods))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", r.Metrics.Wins, r.Metrics.Losses))
	sb.WriteString(fmt.Sprintf("| Loss Events | %d |\n", r.Metrics.LossEvents))
	sb.WriteString("\n")

	// Equity curve
	sb.WriteString("## Equity Curve\n\n")
	if len(r.Rows) > 0 {
		sb.WriteString("| Date | Asset % | Strategy % | Profit | Capital | Loss |\n")
		sb.WriteString("|------|---------|------------|--------|---------|------|\n")
		for _, row := range r.Rows {
			loss := ""
			if row.LossEvent {
				loss = "x"
			}
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %.2f | %s |\n",
				row.Time.Format("2006-01-02"),
				row.AssetReturn*100, row.StrategyReturn*100,
				row.Profit, row.Capital, loss))
		}
	} else {
		sb.WriteString("No simulated periods.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
