package risk

type Policy struct {
	// Trade constraints
	MinRR float64 `json:"min_rr" yaml:"min_rr" toml:"min_rr"` // 1.5

	// MaxStopPct caps the stop distance as a fraction of entry. 0 disables.
	MaxStopPct float64 `json:"max_stop_pct" yaml:"max_stop_pct" toml:"max_stop_pct"` // 0.05
}

func DefaultPolicy() Policy {
	return Policy{
		MinRR:      1,
		MaxStopPct: 0.10,
	}
}
