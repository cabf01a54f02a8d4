package score

import "math"

// Penalties holds the hand-tuned constants for the additive deductions
// applied after the weighted combination. Every value is product
// configuration: preserve exactly, do not re-derive.
type Penalties struct {
	// A drive time under this many minutes to either point triggers the
	// city-center penalty.
	CityCenterDriveMinutes float64 `yaml:"city_center_drive_minutes"`
	// Scale of the city-center penalty; applied to (1 - min/max ratio).
	CityCenterScale float64 `yaml:"city_center_scale"`

	// Distance beyond which the far-from-both penalty accrues, per km.
	FarDistanceKm float64 `yaml:"far_distance_km"`
	FarPerKm      float64 `yaml:"far_per_km"`
	FarCap        float64 `yaml:"far_cap"`

	// Distance under which the too-close-to-one penalty accrues, per km.
	CloseDistanceKm float64 `yaml:"close_distance_km"`
	ClosePerKm      float64 `yaml:"close_per_km"`
	CloseCap        float64 `yaml:"close_cap"`

	// Smaller/larger distance ratios below this trigger the imbalance
	// penalty, scaled by ImbalanceScale.
	ImbalanceRatio float64 `yaml:"imbalance_ratio"`
	ImbalanceScale float64 `yaml:"imbalance_scale"`
}

// DefaultPenalties returns the original constants.
func DefaultPenalties() Penalties {
	return Penalties{
		CityCenterDriveMinutes: 15,
		CityCenterScale:        30,
		FarDistanceKm:          60,
		FarPerKm:               0.5,
		FarCap:                 25,
		CloseDistanceKm:        30,
		ClosePerKm:             0.8,
		CloseCap:               20,
		ImbalanceRatio:         0.5,
		ImbalanceScale:         50,
	}
}

// Total computes the four penalties independently and sums them. Each
// term is non-negative; the caller subtracts the total from the weighted
// base score and floors the result at zero.
func (p Penalties) Total(driveA, driveB, distA, distB float64) float64 {
	total := 0.0

	// City-center: very close to one point while far from the other
	// scored well on raw closeness but is undesirable here.
	if driveA < p.CityCenterDriveMinutes || driveB < p.CityCenterDriveMinutes {
		maxDrive := math.Max(driveA, driveB)
		if maxDrive > 0 {
			ratio := math.Min(driveA, driveB) / maxDrive
			total += (1 - ratio) * p.CityCenterScale
		}
	}

	// Far from both points.
	maxDist := math.Max(distA, distB)
	if maxDist > p.FarDistanceKm {
		total += math.Min((maxDist-p.FarDistanceKm)*p.FarPerKm, p.FarCap)
	}

	// Too close to one point.
	minDist := math.Min(distA, distB)
	if minDist < p.CloseDistanceKm {
		total += math.Min((p.CloseDistanceKm-minDist)*p.ClosePerKm, p.CloseCap)
	}

	// Extreme distance imbalance.
	if maxDist > 0 {
		ratio := minDist / maxDist
		if ratio < p.ImbalanceRatio {
			total += (p.ImbalanceRatio - ratio) * p.ImbalanceScale
		}
	}

	return total
}
