package notify

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/signalbot/signals"
)

const timeLayout = "2006-01-02 15:04:05"

// Title is a one-line summary, e.g. "ENTRY SIGNAL BTC/USD BUY".
func Title(sig signals.Signal) string {
	return fmt.Sprintf("%s SIGNAL %s %s", strings.ToUpper(string(sig.Kind)), sig.Symbol, strings.ToUpper(string(sig.Direction)))
}

// FormatSignal renders sig as Discord-flavoured markdown.
func FormatSignal(sig signals.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 **%s SIGNAL** 🚨\n\n", strings.ToUpper(string(sig.Kind)))
	fmt.Fprintf(&b, "**PAIR:** %s\n", sig.Symbol)
	fmt.Fprintf(&b, "**Timeframe:** %s\n", sig.Timeframe)
	fmt.Fprintf(&b, "**Direction:** %s\n", strings.ToUpper(string(sig.Direction)))
	fmt.Fprintf(&b, "**Entry:** %.2f\n", sig.Entry)
	fmt.Fprintf(&b, "**SL:** %.2f\n", sig.StopLoss)
	fmt.Fprintf(&b, "**TP:** %.2f\n", sig.TakeProfit)
	if sig.Kind == signals.Exit {
		fmt.Fprintf(&b, "**Exit:** %.2f\n", sig.ExitPrice)
		fmt.Fprintf(&b, "**Result:** %s\n", sig.Result)
	}
	if sig.Confidence != nil {
		fmt.Fprintf(&b, "**Confidence:** %.2f\n", *sig.Confidence)
	}
	fmt.Fprintf(&b, "**Time:** %s\n", sig.Time.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "Reason: %s\n", sig.Reason)
	return b.String()
}
