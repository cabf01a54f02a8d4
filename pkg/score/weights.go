package score

import (
	"fmt"
	"math"
)

// Mode selects which factors are required and how they are weighted.
type Mode string

const (
	ModeFull      Mode = "full"
	ModeNoSize    Mode = "no-size"
	ModeNoTransit Mode = "no-transit"
	ModeMinimal   Mode = "minimal"
)

// ParseMode validates a mode string from the CLI or config file.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeNoSize, ModeNoTransit, ModeMinimal:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown scoring mode %q (want full, no-size, no-transit or minimal)", s)
}

// Weights are the per-factor coefficients for one scoring run. The
// distance, drive time and transit time weights apply once per reference
// point, so the effective sum is price + 2*(distance+drive+transit) +
// size + bedrooms + bathrooms + balance. Unused factors are pinned to 0.
type Weights struct {
	Price       float64 `yaml:"price"`
	Distance    float64 `yaml:"distance"`
	DriveTime   float64 `yaml:"drive_time"`
	TransitTime float64 `yaml:"transit_time"`
	Size        float64 `yaml:"size"`
	Bedrooms    float64 `yaml:"bedrooms"`
	Bathrooms   float64 `yaml:"bathrooms"`
	Balance     float64 `yaml:"balance"`
}

// weightSumTolerance is how far from 1.0 the weight sum may drift.
const weightSumTolerance = 0.001

// Sum returns the effective total across both reference points.
func (w Weights) Sum() float64 {
	return w.Price + 2*(w.Distance+w.DriveTime+w.TransitTime) +
		w.Size + w.Bedrooms + w.Bathrooms + w.Balance
}

// Validate rejects weight sets that do not sum to 1.0 within tolerance.
// This runs before any record is scored.
func (w Weights) Validate() error {
	sum := w.Sum()
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights sum to %.4f, expected 1.0 (±%.3f)", sum, weightSumTolerance)
	}
	return nil
}

// DefaultWeights returns the hand-tuned weight table for a mode. The
// numbers are product configuration, not derived values; changing them is
// a product decision.
func DefaultWeights(mode Mode) Weights {
	switch mode {
	case ModeNoSize:
		return Weights{
			Distance:    0.12,
			DriveTime:   0.12,
			TransitTime: 0.18,
			Bedrooms:    0.10,
			Bathrooms:   0.05,
			Balance:     0.01,
		}
	case ModeNoTransit:
		return Weights{
			Distance:  0.18,
			DriveTime: 0.18,
			Size:      0.12,
			Bedrooms:  0.08,
			Bathrooms: 0.05,
			Balance:   0.03,
		}
	case ModeMinimal:
		return Weights{
			Distance:  0.22,
			DriveTime: 0.18,
			Bedrooms:  0.15,
			Bathrooms: 0.05,
		}
	default: // ModeFull
		return Weights{
			Price:       0.08,
			Distance:    0.09,
			DriveTime:   0.07,
			TransitTime: 0.11,
			Size:        0.12,
			Bedrooms:    0.08,
			Bathrooms:   0.05,
			Balance:     0.13,
		}
	}
}

// IncludesSize reports whether the mode requires and scores property size.
func (m Mode) IncludesSize() bool {
	return m == ModeFull || m == ModeNoTransit
}

// IncludesTransit reports whether the mode requires and scores transit times.
func (m Mode) IncludesTransit() bool {
	return m == ModeFull || m == ModeNoSize
}
