package journal

import (
	"math"

	"github.com/rustyeddy/signalbot/signals"
)

// Stats summarizes a set of closed trades.
type Stats struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
}

// Summarize computes win rate, total PnL and profit factor. ProfitFactor is
// +Inf when there are wins and no losses, and 0 when there are no trades.
func Summarize(trades []TradeRecord) Stats {
	var s Stats
	for _, t := range trades {
		s.Trades++
		s.TotalPnL += t.PnL
		if t.Result == signals.TakeProfit {
			s.Wins++
			s.GrossProfit += t.PnL
		} else {
			s.Losses++
			s.GrossLoss += -t.PnL
		}
	}
	if s.Trades == 0 {
		return s
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWin = Round2(s.GrossProfit / float64(s.Wins))
	}
	if s.Losses > 0 {
		s.AvgLoss = Round2(s.GrossLoss / float64(s.Losses))
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	s.TotalPnL = Round2(s.TotalPnL)
	s.GrossProfit = Round2(s.GrossProfit)
	s.GrossLoss = Round2(s.GrossLoss)
	return s
}
