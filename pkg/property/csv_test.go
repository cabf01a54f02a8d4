package property

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testRefs = []string{"edinburgh", "glasgow"}

const inputCSV = `address,price,bedrooms,bathrooms,property_size_sqm,edinburgh_distance_km,edinburgh_drive_time_minutes,edinburgh_transit_time_minutes,glasgow_distance_km,glasgow_drive_time_minutes,glasgow_transit_time_minutes,property_url
"Leith Walk, Edinburgh",1200,2,1,70,2.1,12,18,72,55,70,https://example.com/p/1
"Dumbarton Road, Glasgow",950,1,,,68,52,65,3.4,14,,https://example.com/p/2
"Falkirk High Street",not-a-number,2,1,62,40,35,48,38,33,45,
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	table, err := ReadFile(writeTemp(t, inputCSV), testRefs)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(table.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(table.Records))
	}

	first := table.Records[0]
	if first.Address != "Leith Walk, Edinburgh" {
		t.Errorf("address = %q", first.Address)
	}
	if first.PricePCM == nil || *first.PricePCM != 1200 {
		t.Errorf("price = %v", first.PricePCM)
	}
	if d := first.TravelTo("edinburgh").DistanceKm; d == nil || *d != 2.1 {
		t.Errorf("edinburgh distance = %v", d)
	}
	if tt := first.TravelTo("glasgow").TransitMinutes; tt == nil || *tt != 70 {
		t.Errorf("glasgow transit = %v", tt)
	}

	// Blank and unparseable cells become absent values, never zeros.
	second := table.Records[1]
	if second.Bathrooms != nil {
		t.Errorf("blank bathrooms = %v, want nil", second.Bathrooms)
	}
	if second.SizeSqm != nil {
		t.Errorf("blank size = %v, want nil", second.SizeSqm)
	}
	if second.TravelTo("glasgow").TransitMinutes != nil {
		t.Error("blank transit cell should be absent")
	}
	third := table.Records[2]
	if third.PricePCM != nil {
		t.Errorf("unparseable price = %v, want nil", third.PricePCM)
	}

	// Records get distinct ids on read.
	if first.ID == "" || first.ID == second.ID {
		t.Error("ids must be distinct and non-empty")
	}
}

func TestReadFileMissingColumns(t *testing.T) {
	table, err := ReadFile(writeTemp(t, "address,price\n\"Somewhere\",900\n"), testRefs)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if table.HasColumn(ColBedrooms) {
		t.Error("bedrooms column should be absent")
	}
	missing := table.MissingColumns([]string{ColPrice, ColBedrooms, DistanceColumn("edinburgh")})
	if len(missing) != 2 {
		t.Errorf("missing = %v", missing)
	}
}

func TestReadFileEmpty(t *testing.T) {
	if _, err := ReadFile(writeTemp(t, ""), testRefs); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestWriteScoredFileLayoutAndBlanks(t *testing.T) {
	scored := NewRecord("Leith Walk, Edinburgh")
	scored.PricePCM = Float(1200)
	scored.Bedrooms = Int(2)
	scored.Bathrooms = Int(1)
	scored.SizeSqm = Float(70)
	scored.URL = "https://example.com/p/1"
	scored.Travel["edinburgh"] = Travel{DistanceKm: Float(2.1), DriveMinutes: Float(12), TransitMinutes: Float(18)}
	scored.Travel["glasgow"] = Travel{DistanceKm: Float(72), DriveMinutes: Float(55), TransitMinutes: Float(70)}

	unscored := NewRecord("Dumbarton Road, Glasgow")
	unscored.PricePCM = Float(950)
	unscored.URL = "https://example.com/p/2"

	scoreCols := []string{"price_score", "bedroom_score"}
	scores := map[string]map[string]float64{
		scored.ID: {
			"price_score":    100,
			"bedroom_score":  30,
			ColCombinedScore: 71.5,
		},
	}

	path := filepath.Join(t.TempDir(), "scored.csv")
	if err := WriteScoredFile(path, testRefs, []Record{scored, unscored}, scoreCols, scores); err != nil {
		t.Fatalf("WriteScoredFile: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	header := strings.Join(rows[0], ",")
	want := "address,price,bedrooms,bathrooms,property_size_sqm," +
		"edinburgh_distance_km,edinburgh_drive_time_minutes,edinburgh_transit_time_minutes," +
		"glasgow_distance_km,glasgow_drive_time_minutes,glasgow_transit_time_minutes," +
		"price_score,bedroom_score,combined_score,property_url"
	if header != want {
		t.Errorf("header = %s\nwant %s", header, want)
	}

	byCol := func(row []string, col string) string {
		for i, h := range rows[0] {
			if h == col {
				return row[i]
			}
		}
		t.Fatalf("no column %s", col)
		return ""
	}

	if got := byCol(rows[1], ColCombinedScore); got != "71.50" {
		t.Errorf("combined score = %q", got)
	}
	if got := byCol(rows[1], "price_score"); got != "100.00" {
		t.Errorf("price score = %q", got)
	}

	// Unscored records keep their input fields but get blank score cells.
	if got := byCol(rows[2], ColCombinedScore); got != "" {
		t.Errorf("unscored combined = %q, want blank", got)
	}
	if got := byCol(rows[2], "price_score"); got != "" {
		t.Errorf("unscored price score = %q, want blank", got)
	}
	if got := byCol(rows[2], ColPrice); got != "950" {
		t.Errorf("unscored price cell = %q", got)
	}
	if got := byCol(rows[2], ColURL); got != "https://example.com/p/2" {
		t.Errorf("unscored url = %q", got)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	table, err := ReadFile(writeTemp(t, inputCSV), testRefs)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteFile(path, testRefs, table.Records); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	again, err := ReadFile(path, testRefs)
	if err != nil {
		t.Fatalf("ReadFile (round trip): %v", err)
	}
	if len(again.Records) != len(table.Records) {
		t.Fatalf("record count changed: %d != %d", len(again.Records), len(table.Records))
	}
	for i := range again.Records {
		a, b := table.Records[i], again.Records[i]
		if a.Address != b.Address {
			t.Errorf("row %d address %q != %q", i, a.Address, b.Address)
		}
		da, db := a.TravelTo("edinburgh").DistanceKm, b.TravelTo("edinburgh").DistanceKm
		if (da == nil) != (db == nil) || (da != nil && *da != *db) {
			t.Errorf("row %d distance %v != %v", i, da, db)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewRecord("Byres Road, Glasgow")
	rec.PricePCM = Float(900)
	rec.Travel["glasgow"] = Travel{DistanceKm: Float(1.2)}

	clone := rec.Clone()
	*clone.PricePCM = 1
	*clone.Travel["glasgow"].DistanceKm = 500
	clone.Travel["edinburgh"] = Travel{DriveMinutes: Float(9)}

	if *rec.PricePCM != 900 {
		t.Errorf("price mutated through clone: %v", *rec.PricePCM)
	}
	if *rec.Travel["glasgow"].DistanceKm != 1.2 {
		t.Errorf("travel mutated through clone: %v", *rec.Travel["glasgow"].DistanceKm)
	}
	if _, ok := rec.Travel["edinburgh"]; ok {
		t.Error("clone's travel map is shared with the original")
	}
}
