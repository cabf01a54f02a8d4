package geo

import (
	"context"
	"math"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// ReferencePoint is a named destination that records are scored against,
// e.g. an Edinburgh or Glasgow city-center landmark.
type ReferencePoint struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"latitude"`
	Lng  float64 `yaml:"longitude"`
}

func (r ReferencePoint) Point() Point {
	return Point{Lat: r.Lat, Lng: r.Lng}
}

// Leg is one routing result: road distance and travel duration.
type Leg struct {
	DistanceKm float64
	Minutes    float64
}

// TravelMode selects the routing profile.
type TravelMode string

const (
	TravelDrive   TravelMode = "DRIVE"
	TravelTransit TravelMode = "TRANSIT"
)

// Geocoder resolves a free-text query to a coordinate. The second return
// is false when the service had no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Point, bool, error)
}

// Cache persists lookup results between runs so repeated enrichment of
// the same listings does not repeat remote calls. A nil *Leg is a cached
// negative result.
type Cache interface {
	GetRoute(ctx context.Context, address, ref string, mode TravelMode) (*Leg, bool, error)
	PutRoute(ctx context.Context, address, ref string, mode TravelMode, leg *Leg) error
	GetGeocode(ctx context.Context, query string) (*Point, bool, error)
	PutGeocode(ctx context.Context, query string, p *Point) error
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points. Used
// as the straight-line fallback when no routing backend is configured.
func HaversineKm(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
