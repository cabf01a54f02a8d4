package property

import "github.com/google/uuid"

// Travel holds the enrichment data for one record against one reference
// point. Any leg may be absent: the routing lookup returns nothing for
// addresses it cannot resolve.
type Travel struct {
	DistanceKm     *float64
	DriveMinutes   *float64
	TransitMinutes *float64
}

// Record is one rental listing. Optional fields are pointers; nil means
// the value was absent in the input and the record may be ineligible for
// scoring depending on the active mode.
type Record struct {
	ID        string
	Address   string
	PricePCM  *float64
	Bedrooms  *int
	Bathrooms *int
	SizeSqm   *float64
	URL       string

	// Travel is keyed by reference point name (e.g. "edinburgh").
	Travel map[string]Travel
}

// NewRecord returns a Record with a fresh stable identifier. The ID is
// carried through every pipeline stage so per-factor score series never
// rely on positional alignment.
func NewRecord(address string) Record {
	return Record{
		ID:      uuid.NewString(),
		Address: address,
		Travel:  map[string]Travel{},
	}
}

// TravelTo returns the travel data for a reference point, zero-valued if
// the record has none.
func (r Record) TravelTo(ref string) Travel {
	if r.Travel == nil {
		return Travel{}
	}
	return r.Travel[ref]
}

// Clone returns a deep copy. Pipeline stages that rewrite values (the
// cleaning clip rules) operate on copies so earlier stages keep their view.
func (r Record) Clone() Record {
	out := r
	out.Travel = make(map[string]Travel, len(r.Travel))
	for ref, t := range r.Travel {
		out.Travel[ref] = Travel{
			DistanceKm:     copyFloat(t.DistanceKm),
			DriveMinutes:   copyFloat(t.DriveMinutes),
			TransitMinutes: copyFloat(t.TransitMinutes),
		}
	}
	out.PricePCM = copyFloat(r.PricePCM)
	out.SizeSqm = copyFloat(r.SizeSqm)
	out.Bedrooms = copyInt(r.Bedrooms)
	out.Bathrooms = copyInt(r.Bathrooms)
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float is a convenience constructor for optional numeric fields.
func Float(v float64) *float64 { return &v }

// Int is a convenience constructor for optional count fields.
func Int(v int) *int { return &v }
