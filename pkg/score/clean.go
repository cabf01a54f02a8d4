package score

import (
	"strings"

	"github.com/ewanmck/rentscout/pkg/logging"
	"github.com/ewanmck/rentscout/pkg/property"
)

// Cleaning configures the pre-scoring data cleanup pass. The clip caps
// mean "far enough, stop distinguishing further" rather than marking
// outliers for removal.
type Cleaning struct {
	Enabled bool `yaml:"enabled"`

	// Records whose address contains any of these (case-insensitive) are
	// outside the target region and dropped before anything else.
	ExcludeKeywords []string `yaml:"exclude_keywords"`

	ClipDriveMinutes float64 `yaml:"clip_drive_minutes"`
	ClipDistanceKm   float64 `yaml:"clip_distance_km"`

	// Both distances beyond this: too far from the whole region, drop.
	FarFromBothKm float64 `yaml:"far_from_both_km"`
	// Both drive times under this: two distant cities cannot both be
	// minutes away, so the record is a geocoding error, drop.
	MinDriveMinutes float64 `yaml:"min_drive_minutes"`
}

// DefaultCleaning returns the original pass configuration for the
// Scotland dataset.
func DefaultCleaning() Cleaning {
	return Cleaning{
		Enabled: true,
		ExcludeKeywords: []string{
			"Manchester", "England", "Wales", "London",
			"Birmingham", "Liverpool", "Leeds", "Sheffield",
		},
		ClipDriveMinutes: 180,
		ClipDistanceKm:   200,
		FarFromBothKm:    100,
		MinDriveMinutes:  5,
	}
}

// Cleaner applies the pre-pass in a fixed order: region filter on the raw
// data, then clipping, then the distance and drive-time drop rules on the
// filtered, clipped data. Removal counts are logged per stage.
type Cleaner struct {
	cfg        Cleaning
	refA, refB string
	log        *logging.Logger
}

func NewCleaner(cfg Cleaning, refA, refB string, log *logging.Logger) *Cleaner {
	if log == nil {
		log = logging.Nop()
	}
	return &Cleaner{cfg: cfg, refA: refA, refB: refB, log: log}
}

// Clean returns a new record set; inputs are never mutated.
func (c *Cleaner) Clean(records []property.Record) []property.Record {
	original := len(records)
	c.log.Info("cleaning started", "records", original)

	kept := c.filterRegion(records)
	c.log.Info("removed out-of-region records", "removed", original-len(kept))

	kept = c.clip(kept)

	afterRegion := len(kept)
	kept = c.dropFarFromBoth(kept)
	c.log.Info("removed records too far from both points", "removed", afterRegion-len(kept))

	afterFar := len(kept)
	kept = c.dropUnrealisticDrives(kept)
	c.log.Info("removed records with unrealistic drive times", "removed", afterFar-len(kept))

	c.log.Info("cleaning complete", "removed", original-len(kept), "remaining", len(kept))
	return kept
}

func (c *Cleaner) filterRegion(records []property.Record) []property.Record {
	if len(c.cfg.ExcludeKeywords) == 0 {
		return append([]property.Record(nil), records...)
	}
	var kept []property.Record
	for _, rec := range records {
		addr := strings.ToLower(rec.Address)
		excluded := false
		for _, kw := range c.cfg.ExcludeKeywords {
			if strings.Contains(addr, strings.ToLower(kw)) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (c *Cleaner) clip(records []property.Record) []property.Record {
	out := make([]property.Record, 0, len(records))
	for _, rec := range records {
		clone := rec.Clone()
		for _, ref := range []string{c.refA, c.refB} {
			t := clone.Travel[ref]
			clipUpper(t.DriveMinutes, c.cfg.ClipDriveMinutes)
			clipUpper(t.DistanceKm, c.cfg.ClipDistanceKm)
		}
		out = append(out, clone)
	}
	return out
}

func clipUpper(v *float64, cap float64) {
	if v != nil && cap > 0 && *v > cap {
		*v = cap
	}
}

func (c *Cleaner) dropFarFromBoth(records []property.Record) []property.Record {
	if c.cfg.FarFromBothKm <= 0 {
		return records
	}
	var kept []property.Record
	for _, rec := range records {
		dA := rec.TravelTo(c.refA).DistanceKm
		dB := rec.TravelTo(c.refB).DistanceKm
		if dA != nil && dB != nil && *dA > c.cfg.FarFromBothKm && *dB > c.cfg.FarFromBothKm {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func (c *Cleaner) dropUnrealisticDrives(records []property.Record) []property.Record {
	if c.cfg.MinDriveMinutes <= 0 {
		return records
	}
	var kept []property.Record
	for _, rec := range records {
		tA := rec.TravelTo(c.refA).DriveMinutes
		tB := rec.TravelTo(c.refB).DriveMinutes
		if tA != nil && tB != nil && *tA < c.cfg.MinDriveMinutes && *tB < c.cfg.MinDriveMinutes {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}
