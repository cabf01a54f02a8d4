package score

// Bedroom and bathroom counts are scored through fixed step tables rather
// than min-max scaling: these are small ordinal counts where the shape of
// the preference curve matters more than linear distance between values.
//
// Counts outside the tables score 0. That includes 0-bedroom studios and
// 7+ bedroom houses, which may undercount legitimate listings; the intent
// behind the original tables is unclear, so the behavior is kept as-is
// rather than extrapolated away. See DESIGN.md.

var bedroomTable = map[int]float64{
	1: 10,
	2: 30,
	3: 50,
	4: 70,
	5: 85,
	6: 100,
}

var bathroomTable = map[int]float64{
	0: 0,
	1: 25,
	2: 60,
	3: 85,
	4: 100,
}

// BedroomScore maps a bedroom count to [0, 100].
func BedroomScore(n int) float64 {
	return bedroomTable[n]
}

// BathroomScore maps a bathroom count to [0, 100].
func BathroomScore(n int) float64 {
	return bathroomTable[n]
}
