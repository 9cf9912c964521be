package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/whaletracker/engine/internal/domain"
	"github.com/whaletracker/engine/internal/ports"
)

// Console implementa ports.Notifier escribiendo al terminal.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PositionOpened imprime la apertura de una posición simulada.
func (c *Console) PositionOpened(_ context.Context, ev ports.PositionEvent) error {
	pos := ev.Position
	fmt.Fprintf(c.out, "[%s] OPEN  %s u%d %s %s @%.3f  $%.2f  score:%d  %s\n",
		time.Now().Format("15:04:05"),
		pos.StrategyID, pos.UserID,
		marketLabel(pos), pos.Outcome, pos.EntryPrice,
		pos.BetAmount, ev.Score, ev.Reason,
	)
	return nil
}

// PositionSettled imprime el cierre de una posición resuelta.
func (c *Console) PositionSettled(_ context.Context, ev ports.PositionEvent) error {
	pos := ev.Position
	pnl := 0.0
	if pos.ResultPnLPct != nil {
		pnl = *pos.ResultPnLPct
	}

	verdict := "LOSS"
	switch {
	case pos.Status == domain.StatusClosedVoid:
		verdict = "VOID"
	case pnl > 0:
		verdict = "WIN "
	}

	fmt.Fprintf(c.out, "[%s] %s %s u%d %s %s  pnl:%+.1f%%  payout:$%.2f\n",
		time.Now().Format("15:04:05"), verdict,
		pos.StrategyID, pos.UserID,
		marketLabel(pos), pos.Outcome, pnl, ev.Payout,
	)
	return nil
}

// EmergencyExit imprime una salida anticipada por venta de la whale.
func (c *Console) EmergencyExit(_ context.Context, ev ports.PositionEvent) error {
	pos := ev.Position
	exit := 0.0
	if pos.ExitPrice != nil {
		exit = *pos.ExitPrice
	}
	fmt.Fprintf(c.out, "[%s] EXIT! %s u%d %s %s @%.3f → %.3f  proceeds:$%.2f  %s\n",
		time.Now().Format("15:04:05"),
		pos.StrategyID, pos.UserID,
		marketLabel(pos), pos.Outcome, pos.EntryPrice, exit,
		ev.Payout, ev.Reason,
	)
	return nil
}

// Heartbeat imprime una señal de vida periódica.
func (c *Console) Heartbeat(_ context.Context, userIDs []int64) error {
	fmt.Fprintf(c.out, "[%s] heartbeat — siguiendo %d usuarios activos\n",
		time.Now().Format("15:04:05"), len(userIDs))
	return nil
}

// PrintStrategyReport imprime la tabla de performance por estrategia.
func (c *Console) PrintStrategyReport(rows []domain.StrategyPerformance, days int) {
	fmt.Fprintf(c.out, "\n=== PERFORMANCE POR ESTRATEGIA (últimos %d días) ===\n", days)
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "  sin posiciones en la ventana")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Total", "Wins", "Pending", "Winrate", "AvgROI", "AvgROI(cap)")
	for _, r := range rows {
		table.Append(
			r.StrategyID,
			fmt.Sprintf("%d", r.Total),
			fmt.Sprintf("%d", r.Wins),
			fmt.Sprintf("%d", r.Pending),
			fmt.Sprintf("%.1f%%", r.WinratePct()),
			fmt.Sprintf("%+.1f%%", r.AvgROI),
			fmt.Sprintf("%+.1f%%", r.AvgROICapped),
		)
	}
	table.Render()
}

// PrintOddsReport imprime la tabla de performance por banda de precio.
func (c *Console) PrintOddsReport(rows []domain.OddsBucketPerformance, days int) {
	fmt.Fprintf(c.out, "\n=== PERFORMANCE POR BANDA DE PRECIO (últimos %d días) ===\n", days)
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "  sin posiciones settled en la ventana")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Entry band", "Total", "Wins", "AvgROI(cap)")
	for _, r := range rows {
		table.Append(
			r.Bucket,
			fmt.Sprintf("%d", r.Total),
			fmt.Sprintf("%d", r.Wins),
			fmt.Sprintf("%+.1f%%", r.AvgROICapped),
		)
	}
	table.Render()
}

// PrintCategoryReport imprime la tabla de performance por categoría y liga.
func (c *Console) PrintCategoryReport(rows []domain.CategoryPerformance, days int) {
	fmt.Fprintf(c.out, "\n=== PERFORMANCE POR CATEGORÍA (últimos %d días) ===\n", days)
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "  sin posiciones settled en la ventana")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Category", "League", "Total", "Wins", "AvgROI(cap)")
	for _, r := range rows {
		league := r.League
		if league == "" {
			league = "-"
		}
		table.Append(
			string(r.Category),
			league,
			fmt.Sprintf("%d", r.Total),
			fmt.Sprintf("%d", r.Wins),
			fmt.Sprintf("%+.1f%%", r.AvgROICapped),
		)
	}
	table.Render()
}

// PrintEquityReport imprime la foto mark-to-market de los portfolios.
func (c *Console) PrintEquityReport(rows []domain.PortfolioEquity) {
	fmt.Fprintln(c.out, "\n=== PORTFOLIOS (mark-to-market) ===")
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "  sin portfolios activos")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("User", "Strategy", "Balance", "Locked", "Unrealized", "Equity")
	for _, r := range rows {
		table.Append(
			fmt.Sprintf("%d", r.UserID),
			r.StrategyID,
			fmt.Sprintf("$%.2f", r.Balance),
			fmt.Sprintf("$%.2f", r.Locked),
			fmt.Sprintf("$%.2f", r.Unrealized),
			fmt.Sprintf("$%.2f", r.Equity),
		)
	}
	table.Render()
}

// --- helpers ---

func marketLabel(pos domain.Position) string {
	if pos.MarketSlug != "" {
		return truncate(pos.MarketSlug, 38)
	}
	if len(pos.ConditionID) > 14 {
		return pos.ConditionID[:12] + "..."
	}
	return pos.ConditionID
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, "-"); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
