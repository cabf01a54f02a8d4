package geo

import (
	"context"
	"fmt"

	"github.com/ewanmck/rentscout/pkg/logging"
	"github.com/ewanmck/rentscout/pkg/property"
)

// Enricher fills in per-reference-point distance and travel-time fields
// on listing records. With a routing client configured it resolves road
// distance plus drive and transit durations; otherwise it falls back to
// geocoding the address and computing the straight-line distance, leaving
// the time fields empty.
//
// All lookups go through the cache first, and every remote answer —
// including misses — is written back so re-runs stay cheap.
type Enricher struct {
	routes   *RoutesClient
	geocoder Geocoder
	cache    Cache
	refs     []ReferencePoint
	log      *logging.Logger
}

func NewEnricher(routes *RoutesClient, geocoder Geocoder, cache Cache, refs []ReferencePoint, log *logging.Logger) *Enricher {
	if log == nil {
		log = logging.Nop()
	}
	return &Enricher{
		routes:   routes,
		geocoder: geocoder,
		cache:    cache,
		refs:     refs,
		log:      log,
	}
}

// Enrich returns a new record set with travel data filled in where it was
// missing. Records whose addresses cannot be resolved keep their gaps;
// the eligibility filter deals with them at scoring time.
func (e *Enricher) Enrich(ctx context.Context, records []property.Record) ([]property.Record, error) {
	out := make([]property.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}

	for _, ref := range e.refs {
		if e.routes != nil {
			if err := e.enrichRouted(ctx, out, ref); err != nil {
				return nil, fmt.Errorf("enrich against %s: %w", ref.Name, err)
			}
			continue
		}
		if e.geocoder != nil {
			if err := e.enrichGeocoded(ctx, out, ref); err != nil {
				return nil, fmt.Errorf("enrich against %s: %w", ref.Name, err)
			}
		}
	}
	return out, nil
}

// enrichRouted fills distance and drive time from the DRIVE matrix and
// transit time from the TRANSIT matrix.
func (e *Enricher) enrichRouted(ctx context.Context, records []property.Record, ref ReferencePoint) error {
	for _, mode := range []TravelMode{TravelDrive, TravelTransit} {
		pending := e.pendingIndexes(records, ref.Name, mode)
		if len(pending) == 0 {
			continue
		}

		var misses []int
		var addresses []string
		for _, i := range pending {
			leg, found, err := e.cachedRoute(ctx, records[i].Address, ref.Name, mode)
			if err != nil {
				return err
			}
			if found {
				applyLeg(&records[i], ref.Name, mode, leg)
				continue
			}
			misses = append(misses, i)
			addresses = append(addresses, records[i].Address)
		}

		e.log.Info("routing lookup",
			"ref", ref.Name, "mode", string(mode),
			"cached", len(pending)-len(misses), "remote", len(misses))
		if len(misses) == 0 {
			continue
		}

		legs, err := e.routes.Matrix(ctx, addresses, ref.Point(), mode)
		if err != nil {
			return err
		}
		for j, i := range misses {
			applyLeg(&records[i], ref.Name, mode, legs[j])
			if e.cache != nil {
				if err := e.cache.PutRoute(ctx, records[i].Address, ref.Name, mode, legs[j]); err != nil {
					return fmt.Errorf("cache route: %w", err)
				}
			}
		}
	}
	return nil
}

// enrichGeocoded is the local fallback: geocode the address and store the
// haversine distance. Travel times stay absent, which restricts the
// record to modes that do not need them.
func (e *Enricher) enrichGeocoded(ctx context.Context, records []property.Record, ref ReferencePoint) error {
	resolver := &cachedGeocoder{geocoder: e.geocoder, cache: e.cache}
	for i := range records {
		t := records[i].Travel[ref.Name]
		if t.DistanceKm != nil || records[i].Address == "" {
			continue
		}
		p, found, err := resolver.resolve(ctx, records[i].Address)
		if err != nil {
			return err
		}
		if !found {
			e.log.Warn("address not geocodable", "address", records[i].Address)
			continue
		}
		t.DistanceKm = property.Float(HaversineKm(p, ref.Point()))
		records[i].Travel[ref.Name] = t
	}
	return nil
}

// pendingIndexes lists records still missing the field the mode provides.
func (e *Enricher) pendingIndexes(records []property.Record, ref string, mode TravelMode) []int {
	var out []int
	for i := range records {
		if records[i].Address == "" {
			continue
		}
		t := records[i].Travel[ref]
		switch mode {
		case TravelDrive:
			if t.DistanceKm == nil || t.DriveMinutes == nil {
				out = append(out, i)
			}
		case TravelTransit:
			if t.TransitMinutes == nil {
				out = append(out, i)
			}
		}
	}
	return out
}

func (e *Enricher) cachedRoute(ctx context.Context, address, ref string, mode TravelMode) (*Leg, bool, error) {
	if e.cache == nil {
		return nil, false, nil
	}
	leg, found, err := e.cache.GetRoute(ctx, address, ref, mode)
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	return leg, found, nil
}

// applyLeg writes a routing result onto a record. A nil leg means the
// lookup failed; existing values are never overwritten.
func applyLeg(rec *property.Record, ref string, mode TravelMode, leg *Leg) {
	if leg == nil {
		return
	}
	t := rec.Travel[ref]
	switch mode {
	case TravelDrive:
		if t.DistanceKm == nil {
			t.DistanceKm = property.Float(leg.DistanceKm)
		}
		if t.DriveMinutes == nil {
			t.DriveMinutes = property.Float(leg.Minutes)
		}
	case TravelTransit:
		if t.TransitMinutes == nil {
			t.TransitMinutes = property.Float(leg.Minutes)
		}
	}
	rec.Travel[ref] = t
}

type cachedGeocoder struct {
	geocoder Geocoder
	cache    Cache
}

func (g *cachedGeocoder) resolve(ctx context.Context, query string) (Point, bool, error) {
	if g.cache != nil {
		p, found, err := g.cache.GetGeocode(ctx, query)
		if err != nil {
			return Point{}, false, fmt.Errorf("cache lookup: %w", err)
		}
		if found {
			if p == nil {
				return Point{}, false, nil
			}
			return *p, true, nil
		}
	}

	p, ok, err := g.geocoder.Geocode(ctx, query)
	if err != nil {
		return Point{}, false, err
	}
	if g.cache != nil {
		var stored *Point
		if ok {
			stored = &p
		}
		if err := g.cache.PutGeocode(ctx, query, stored); err != nil {
			return Point{}, false, fmt.Errorf("cache geocode: %w", err)
		}
	}
	return p, ok, nil
}
