package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(slTrade("BTCUSD-20250301T060000-001"))

	assert.Contains(t, result, "** Trade: BTC/USD BUY SL (BTCUSD-20250301T060000-001)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: BTCUSD-20250301T060000-001")
	assert.Contains(t, result, ":TIMEFRAME: 15min")
	assert.Contains(t, result, ":ENTRY_PRICE: 100.00")
	assert.Contains(t, result, ":EXIT_PRICE: 97.50")
	assert.Contains(t, result, ":ENTRY_TIME: 2025-03-01T06:00:00Z")
	assert.Contains(t, result, ":EXIT_TIME: 2025-03-01T09:15:00Z")
	assert.Contains(t, result, ":PNL: -2.00")
	assert.Contains(t, result, ":STRATEGY: bollinger_reentry")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradesOrg([]TradeRecord{tpTrade("trade-001"), slTrade("trade-002")})

	assert.Contains(t, result, "trade-001")
	assert.Contains(t, result, "trade-002")

	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "Expected two trades separated by blank lines")
}

func TestFormatTradesOrgEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", FormatTradesOrg(nil))
}

func TestFormatStatsOrg(t *testing.T) {
	t.Parallel()

	out := FormatStatsOrg("Summary", Summarize([]TradeRecord{tpTrade("1"), slTrade("2")}))
	assert.Contains(t, out, "* Summary")
	assert.Contains(t, out, "| 2 | 1 | 1 | 50.0% | 2.00 | 2.00 |")
}
