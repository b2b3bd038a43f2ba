package console

import (
	"fmt"
	"time"

	"triarb/internal/application/trader"
	"triarb/internal/domain/model"
)

// Sink renders loop status and trade summaries to stdout. Log output goes to
// stderr via zerolog; the sink is the human-facing report surface.
type Sink struct{}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) WriteStatus(st trader.Status) {
	fmt.Printf("\nstate=%s trades=%d pnl=%.4f", st.State, st.TradeCount, st.RealizedPnL)
	if !st.LastTradeAt.IsZero() {
		fmt.Printf(" last_trade=%s", st.LastTradeAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Print("\n")
}

func (s *Sink) WriteTrades(trades []*model.TradeResult) {
	if len(trades) == 0 {
		fmt.Println("no recorded trades")
		return
	}
	fmt.Printf("\n%-28s %-8s %-10s %-12s %s\n", "TIME", "OK", "AMOUNT", "PROFIT", "REASON")
	for _, t := range trades {
		ok := "yes"
		if !t.Success {
			ok = "no"
			if t.Partial {
				ok = "partial"
			}
		}
		fmt.Printf("%-28s %-8s %-10.4f %-12.6f %s\n",
			t.Ts.Format(time.RFC3339), ok, t.Amount, t.Profit, t.FailReason)
	}
}
