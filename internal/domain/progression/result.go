package progression

import "fmt"

// AutoOutcome is the result kind of PurchaseOrAdvanceAutoProduction.
type AutoOutcome int

const (
	AutoRejected AutoOutcome = iota
	AutoAdvanced
	AutoAlreadyMaxed
)

// String returns the wire name of the outcome.
func (o AutoOutcome) String() string {
	switch o {
	case AutoRejected:
		return "rejected"
	case AutoAdvanced:
		return "advanced"
	case AutoAlreadyMaxed:
		return "already_maxed"
	default:
		return "unknown"
	}
}

// AutoResult describes one auto production purchase attempt.
// TierIndex is only meaningful when Outcome is AutoAdvanced.
type AutoResult struct {
	Outcome   AutoOutcome `json:"outcome"`
	TierIndex int         `json:"tier_index"`
}

func (r AutoResult) String() string {
	if r.Outcome == AutoAdvanced {
		return fmt.Sprintf("advanced(%d)", r.TierIndex)
	}
	return r.Outcome.String()
}

// TickResult reports what a single Tick call completed.
type TickResult struct {
	Sampled    bool    // A CPS window closed during this tick
	SampledCPS float64 // Rate measured for the closed window
	Paid       int64   // Cookies added by auto production (0 if no payout)
}

// MarshalText encodes the outcome by name.
func (o AutoOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
