package score

import "math"

// BalanceScore rewards properties that are reasonably close to both
// reference points over ones very close to one and far from the other.
// Inputs are travel times in minutes: transit times when the mode carries
// them, drive times otherwise.
//
// Two components, each clamped to [0, 100]:
//   - worst-time: 100 at 0 minutes, 0 at 200+ minutes to the worse-served
//     point;
//   - symmetry: 100 when both times match, 0 at a 200+ minute gap.
//
// Combined 60/40 and rounded to 2 decimals.
func BalanceScore(timeA, timeB float64) float64 {
	maxTime := math.Max(timeA, timeB)
	diff := math.Abs(timeA - timeB)

	worst := math.Max(0, 100-maxTime/2)
	symmetry := math.Max(0, 100-diff/2)

	return round2(worst*0.6 + symmetry*0.4)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
