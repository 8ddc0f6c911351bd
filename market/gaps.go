package market

import "time"

type GapKind string

const (
	GapMinor      GapKind = "minor"
	GapWeekend    GapKind = "weekend"
	GapSuspicious GapKind = "suspicious"
)

// Gap is a run of missing candles between two present ones.
type Gap struct {
	After   time.Time // last candle before the gap
	Missing int       // number of missing intervals
	Kind    GapKind
}

type GapStats struct {
	Candles        int
	Missing        int
	GapCount       int
	WeekendGaps    int
	SuspiciousGaps int
	LongestGap     int
	LongestGapKind GapKind
}

// FindGaps reports missing intervals in an ascending series sampled every
// step. Times that are not multiples of step apart round down.
func FindGaps(candles []Candle, step time.Duration) []Gap {
	if step <= 0 {
		return nil
	}
	var gaps []Gap
	for i := 1; i < len(candles); i++ {
		missing := int(candles[i].Time.Sub(candles[i-1].Time)/step) - 1
		if missing <= 0 {
			continue
		}
		gaps = append(gaps, Gap{
			After:   candles[i-1].Time,
			Missing: missing,
			Kind:    classifyGap(candles[i-1].Time.Add(step), time.Duration(missing)*step),
		})
	}
	return gaps
}

func classifyGap(start time.Time, length time.Duration) GapKind {
	wd := start.UTC().Weekday()

	// Weekend-ish if gap >= 24h and starts Fri/Sat/Sun (UTC heuristic)
	if length >= 24*time.Hour {
		if wd == time.Friday || wd == time.Saturday || wd == time.Sunday {
			return GapWeekend
		}
		return GapSuspicious
	}
	if length >= 10*time.Minute {
		return GapSuspicious
	}
	return GapMinor
}

// SummarizeGaps folds FindGaps output into counts.
func SummarizeGaps(candles []Candle, gaps []Gap) GapStats {
	s := GapStats{Candles: len(candles)}
	for _, g := range gaps {
		s.GapCount++
		s.Missing += g.Missing
		if g.Missing > s.LongestGap {
			s.LongestGap = g.Missing
			s.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case GapWeekend:
			s.WeekendGaps++
		case GapSuspicious:
			s.SuspiciousGaps++
		}
	}
	return s
}
