package config

// LoanConfig bounds the loan length accepted by the borrow endpoints.
type LoanConfig struct {
	DefaultDays int
	MaxDays     int
}

// LoadLoanConfig reads LOAN_DEFAULT_DAYS and LOAN_MAX_DAYS.  Both are
// clamped to the 1..7 day window the borrow workflow enforces, and the
// default never exceeds the maximum.
func LoadLoanConfig() LoanConfig {
	c := LoanConfig{
		DefaultDays: envInt("LOAN_DEFAULT_DAYS", 7),
		MaxDays:     envInt("LOAN_MAX_DAYS", 7),
	}
	c.MaxDays = clamp(c.MaxDays, 1, 7)
	c.DefaultDays = clamp(c.DefaultDays, 1, c.MaxDays)
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
