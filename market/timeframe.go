package market

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimeframe maps provider interval strings ("15min", "1h", "M15", "H1",
// "1day") to a duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(tf))
	switch s {
	case "1min", "m1", "1m":
		return time.Minute, nil
	case "5min", "m5", "5m":
		return 5 * time.Minute, nil
	case "15min", "m15", "15m":
		return 15 * time.Minute, nil
	case "30min", "m30", "30m":
		return 30 * time.Minute, nil
	case "45min", "45m":
		return 45 * time.Minute, nil
	case "1h", "h1", "60min":
		return time.Hour, nil
	case "2h", "h2":
		return 2 * time.Hour, nil
	case "4h", "h4":
		return 4 * time.Hour, nil
	case "1day", "d1", "1d":
		return 24 * time.Hour, nil
	case "1week", "w1":
		return 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported timeframe string: %s", tf)
}
