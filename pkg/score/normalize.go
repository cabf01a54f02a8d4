package score

// Direction says whether large raw values are desirable for a factor.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Normalize min-max scales one factor's raw values to [0, 100], keyed by
// record ID. The min and max come from the eligible subset only, so
// records without required fields cannot skew the scale.
//
// When every value is identical the factor carries no information and
// every record gets exactly 50.0 rather than a division by zero.
func Normalize(values map[string]float64, dir Direction) map[string]float64 {
	out := make(map[string]float64, len(values))
	if len(values) == 0 {
		return out
	}

	first := true
	var min, max float64
	for _, v := range values {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if max == min {
		for id := range values {
			out[id] = 50.0
		}
		return out
	}

	span := max - min
	for id, v := range values {
		x := (v - min) / span
		if dir == LowerIsBetter {
			x = 1 - x
		}
		out[id] = x * 100
	}
	return out
}
