package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ewanmck/rentscout/pkg/geo"
)

// SQLiteStore caches geocoding and routing lookups between runs. Remote
// answers are keyed by the exact query, and negative answers are cached
// too so unresolvable addresses do not hit the API on every run.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ geo.Cache = (*SQLiteStore)(nil)

type routeRow struct {
	Address    string    `db:"address"`
	Ref        string    `db:"ref"`
	Mode       string    `db:"mode"`
	Found      bool      `db:"found"`
	DistanceKm float64   `db:"distance_km"`
	Minutes    float64   `db:"minutes"`
	FetchedAt  time.Time `db:"fetched_at"`
}

type geocodeRow struct {
	Query     string    `db:"query"`
	Found     bool      `db:"found"`
	Lat       float64   `db:"lat"`
	Lng       float64   `db:"lng"`
	FetchedAt time.Time `db:"fetched_at"`
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetRoute(ctx context.Context, address, ref string, mode geo.TravelMode) (*geo.Leg, bool, error) {
	var row routeRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM route_lookups WHERE address = ? AND ref = ? AND mode = ?",
		address, ref, string(mode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route %s/%s: %w", address, ref, err)
	}
	if !row.Found {
		return nil, true, nil
	}
	return &geo.Leg{DistanceKm: row.DistanceKm, Minutes: row.Minutes}, true, nil
}

func (s *SQLiteStore) PutRoute(ctx context.Context, address, ref string, mode geo.TravelMode, leg *geo.Leg) error {
	row := routeRow{
		Address:   address,
		Ref:       ref,
		Mode:      string(mode),
		FetchedAt: time.Now().UTC(),
	}
	if leg != nil {
		row.Found = true
		row.DistanceKm = leg.DistanceKm
		row.Minutes = leg.Minutes
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_lookups (address, ref, mode, found, distance_km, minutes, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address, ref, mode) DO UPDATE SET
			found = excluded.found,
			distance_km = excluded.distance_km,
			minutes = excluded.minutes,
			fetched_at = excluded.fetched_at
	`, row.Address, row.Ref, row.Mode, row.Found, row.DistanceKm, row.Minutes, row.FetchedAt)
	if err != nil {
		return fmt.Errorf("put route %s/%s: %w", address, ref, err)
	}
	return nil
}

func (s *SQLiteStore) GetGeocode(ctx context.Context, query string) (*geo.Point, bool, error) {
	var row geocodeRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM geocode_lookups WHERE query = ?", query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get geocode %q: %w", query, err)
	}
	if !row.Found {
		return nil, true, nil
	}
	return &geo.Point{Lat: row.Lat, Lng: row.Lng}, true, nil
}

func (s *SQLiteStore) PutGeocode(ctx context.Context, query string, p *geo.Point) error {
	row := geocodeRow{
		Query:     query,
		FetchedAt: time.Now().UTC(),
	}
	if p != nil {
		row.Found = true
		row.Lat = p.Lat
		row.Lng = p.Lng
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_lookups (query, found, lat, lng, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			found = excluded.found,
			lat = excluded.lat,
			lng = excluded.lng,
			fetched_at = excluded.fetched_at
	`, row.Query, row.Found, row.Lat, row.Lng, row.FetchedAt)
	if err != nil {
		return fmt.Errorf("put geocode %q: %w", query, err)
	}
	return nil
}

// Stats summarizes cache contents for the report command.
type Stats struct {
	Routes         int `json:"routes"`
	RouteNegatives int `json:"route_negatives"`
	Geocodes       int `json:"geocodes"`
	GeocodeMisses  int `json:"geocode_misses"`
}

func (s *SQLiteStore) CacheStats(ctx context.Context) (Stats, error) {
	var out Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM route_lookups", &out.Routes},
		{"SELECT COUNT(*) FROM route_lookups WHERE found = 0", &out.RouteNegatives},
		{"SELECT COUNT(*) FROM geocode_lookups", &out.Geocodes},
		{"SELECT COUNT(*) FROM geocode_lookups WHERE found = 0", &out.GeocodeMisses},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, c.query); err != nil {
			return Stats{}, fmt.Errorf("cache stats: %w", err)
		}
	}
	return out, nil
}
