package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ewanmck/rentscout/pkg/geo"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRouteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, found, err := s.GetRoute(ctx, "10 High Street", "edinburgh", geo.TravelDrive); err != nil || found {
		t.Fatalf("cold cache: found=%v err=%v", found, err)
	}

	leg := &geo.Leg{DistanceKm: 12.5, Minutes: 22}
	if err := s.PutRoute(ctx, "10 High Street", "edinburgh", geo.TravelDrive, leg); err != nil {
		t.Fatalf("PutRoute: %v", err)
	}

	got, found, err := s.GetRoute(ctx, "10 High Street", "edinburgh", geo.TravelDrive)
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if !found || got == nil || got.DistanceKm != 12.5 || got.Minutes != 22 {
		t.Errorf("got %+v found=%v", got, found)
	}

	// Same address, different mode or ref is a distinct entry.
	if _, found, _ := s.GetRoute(ctx, "10 High Street", "edinburgh", geo.TravelTransit); found {
		t.Error("transit entry should be absent")
	}
	if _, found, _ := s.GetRoute(ctx, "10 High Street", "glasgow", geo.TravelDrive); found {
		t.Error("glasgow entry should be absent")
	}
}

func TestRouteNegativeCaching(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutRoute(ctx, "unroutable place", "glasgow", geo.TravelDrive, nil); err != nil {
		t.Fatalf("PutRoute(nil): %v", err)
	}

	got, found, err := s.GetRoute(ctx, "unroutable place", "glasgow", geo.TravelDrive)
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if !found || got != nil {
		t.Errorf("negative entry: got %+v found=%v, want nil+found", got, found)
	}
}

func TestRouteUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutRoute(ctx, "a", "edinburgh", geo.TravelDrive, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.PutRoute(ctx, "a", "edinburgh", geo.TravelDrive, &geo.Leg{DistanceKm: 3, Minutes: 7}); err != nil {
		t.Fatal(err)
	}
	got, found, err := s.GetRoute(ctx, "a", "edinburgh", geo.TravelDrive)
	if err != nil || !found || got == nil {
		t.Fatalf("got %+v found=%v err=%v", got, found, err)
	}
	if got.Minutes != 7 {
		t.Errorf("minutes = %v, want 7", got.Minutes)
	}
}

func TestGeocodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutGeocode(ctx, "Princes Street", &geo.Point{Lat: 55.95, Lng: -3.19}); err != nil {
		t.Fatalf("PutGeocode: %v", err)
	}
	if err := s.PutGeocode(ctx, "nowhere at all", nil); err != nil {
		t.Fatalf("PutGeocode(nil): %v", err)
	}

	p, found, err := s.GetGeocode(ctx, "Princes Street")
	if err != nil || !found || p == nil || p.Lat != 55.95 {
		t.Errorf("got %+v found=%v err=%v", p, found, err)
	}
	p, found, err = s.GetGeocode(ctx, "nowhere at all")
	if err != nil || !found || p != nil {
		t.Errorf("negative: got %+v found=%v err=%v", p, found, err)
	}
	if _, found, _ := s.GetGeocode(ctx, "never asked"); found {
		t.Error("cold query should miss")
	}
}

func TestCacheStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.PutRoute(ctx, "a", "edinburgh", geo.TravelDrive, &geo.Leg{DistanceKm: 1, Minutes: 2})
	s.PutRoute(ctx, "b", "edinburgh", geo.TravelDrive, nil)
	s.PutGeocode(ctx, "x", &geo.Point{Lat: 1, Lng: 2})

	stats, err := s.CacheStats(ctx)
	if err != nil {
		t.Fatalf("CacheStats: %v", err)
	}
	if stats.Routes != 2 || stats.RouteNegatives != 1 || stats.Geocodes != 1 || stats.GeocodeMisses != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
