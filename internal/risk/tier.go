package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Tier is a discrete risk bucket. Tiers are ordered: Low < Medium < High.
type Tier int

const (
	Low Tier = iota
	Medium
	High
)

// Policy thresholds. These are fixed, not learned.
const (
	HighThreshold   = 0.52
	MediumThreshold = 0.25
)

var ErrInvalidProbability = errors.New("probability must be within [0,1]")

func (t Tier) String() string {
	switch t {
	case High:
		return "High"
	case Medium:
		return "Medium"
	default:
		return "Low"
	}
}

// Severity is the alert style a presentation layer should use for the tier.
func (t Tier) Severity() string {
	switch t {
	case High:
		return "error"
	case Medium:
		return "warning"
	default:
		return "success"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TierFor maps a probability to its tier. Exact threshold values resolve to
// the higher tier.
func TierFor(p float64) Tier {
	if p >= HighThreshold {
		return High
	} else if p >= MediumThreshold {
		return Medium
	}
	return Low
}

// Estimate is a positive-class probability with its derived tier.
type Estimate struct {
	Probability float64 `json:"probability"`
	Tier        Tier    `json:"tier"`
}

// NewEstimate validates p and derives its tier.
func NewEstimate(p float64) (Estimate, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Estimate{}, fmt.Errorf("%w: got %v", ErrInvalidProbability, p)
	}
	return Estimate{Probability: p, Tier: TierFor(p)}, nil
}

// Percent renders the probability as a percentage with one decimal, e.g. "30.0%".
func (e Estimate) Percent() string {
	return decimal.NewFromFloat(e.Probability).Shift(2).StringFixed(1) + "%"
}

// Message is the headline shown next to the result.
func (e Estimate) Message() string {
	return fmt.Sprintf("Estimated diabetes risk probability: %s. Your estimated risk level: %s", e.Percent(), e.Tier)
}
