package property

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Base column names shared by the scraper output and the scoring input.
const (
	ColAddress   = "address"
	ColPrice     = "price"
	ColBedrooms  = "bedrooms"
	ColBathrooms = "bathrooms"
	ColSizeSqm   = "property_size_sqm"
	ColURL       = "property_url"

	ColCombinedScore = "combined_score"
)

// DistanceColumn returns the distance column name for a reference point.
func DistanceColumn(ref string) string { return ref + "_distance_km" }

// DriveTimeColumn returns the drive time column name for a reference point.
func DriveTimeColumn(ref string) string { return ref + "_drive_time_minutes" }

// TransitTimeColumn returns the transit time column name for a reference point.
func TransitTimeColumn(ref string) string { return ref + "_transit_time_minutes" }

// Table is a record set together with the columns present in the file it
// was read from. Column presence decides which scoring modes are viable.
type Table struct {
	Records []Record
	Columns []string
}

// HasColumn reports whether the source file carried the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the subset of required that the table lacks.
func (t *Table) MissingColumns(required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// ReadFile loads a listings CSV. refs names the reference points whose
// travel columns should be picked up when present. Blank or unparseable
// numeric cells become absent values, never zeros.
func ReadFile(path string, refs []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv %s: empty file", path)
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	table := &Table{Columns: header}
	for _, row := range rows[1:] {
		rec := NewRecord(cell(row, ColAddress))
		rec.URL = cell(row, ColURL)
		rec.PricePCM = parseFloat(cell(row, ColPrice))
		rec.SizeSqm = parseFloat(cell(row, ColSizeSqm))
		rec.Bedrooms = parseCount(cell(row, ColBedrooms))
		rec.Bathrooms = parseCount(cell(row, ColBathrooms))

		for _, ref := range refs {
			rec.Travel[ref] = Travel{
				DistanceKm:     parseFloat(cell(row, DistanceColumn(ref))),
				DriveMinutes:   parseFloat(cell(row, DriveTimeColumn(ref))),
				TransitMinutes: parseFloat(cell(row, TransitTimeColumn(ref))),
			}
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

// WriteScoredFile writes the base columns, one column per entry in
// scoreCols, then combined_score, then property_url. scores maps record
// ID -> column -> value; records with no entry get blank cells (the
// explicit unscored marker). The file is created only after every row has
// been rendered, so a failed run leaves no partial output.
func WriteScoredFile(path string, refs []string, records []Record, scoreCols []string, scores map[string]map[string]float64) error {
	header := baseColumns(refs)
	header = append(header, scoreCols...)
	header = append(header, ColCombinedScore, ColURL)

	out := make([][]string, 0, len(records)+1)
	out = append(out, header)

	for _, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row,
			rec.Address,
			formatFloat(rec.PricePCM),
			formatCount(rec.Bedrooms),
			formatCount(rec.Bathrooms),
			formatFloat(rec.SizeSqm),
		)
		for _, ref := range refs {
			t := rec.TravelTo(ref)
			row = append(row,
				formatFloat(t.DistanceKm),
				formatFloat(t.DriveMinutes),
				formatFloat(t.TransitMinutes),
			)
		}

		recScores := scores[rec.ID]
		for _, col := range scoreCols {
			row = append(row, formatScore(recScores, col))
		}
		row = append(row, formatScore(recScores, ColCombinedScore), rec.URL)
		out = append(out, row)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(out); err != nil {
		f.Close()
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv %s: %w", path, err)
	}
	return nil
}

// WriteFile writes records without score columns. Used by the scraper and
// the enrichment pipeline.
func WriteFile(path string, refs []string, records []Record) error {
	return WriteScoredFile(path, refs, records, nil, nil)
}

func baseColumns(refs []string) []string {
	cols := []string{ColAddress, ColPrice, ColBedrooms, ColBathrooms, ColSizeSqm}
	for _, ref := range refs {
		cols = append(cols, DistanceColumn(ref), DriveTimeColumn(ref), TransitTimeColumn(ref))
	}
	return cols
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseCount(s string) *int {
	v := parseFloat(s)
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatScore(recScores map[string]float64, col string) string {
	if recScores == nil {
		return ""
	}
	v, ok := recScores[col]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
