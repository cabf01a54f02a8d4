package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const scoredCSV = `address,price,bedrooms,bathrooms,combined_score,property_url
"Leith Walk, Edinburgh",1200,2,1,71.50,https://example.com/p/1
"Dumbarton Road, Glasgow",950,1,1,64.20,https://example.com/p/2
"Falkirk High Street",1050,2,1,,https://example.com/p/3
"Stirling Road",1100,3,2,80.00,https://example.com/p/4
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "scored.csv"), []byte(scoredCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(dir, 0, nil), dir
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Handler(), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListFilesOnlyCSVs(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Handler(), "/api/v1/files")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp struct {
		Data  []fileInfo `json:"data"`
		Count int        `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Data[0].Name != "scored.csv" {
		t.Errorf("files = %+v", resp.Data)
	}
}

func TestGetFile(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Handler(), "/api/v1/files/scored.csv")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty body")
	}
}

func TestGetFileRejectsTraversal(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{
		"/api/v1/files/..%2Fsecret.csv",
		"/api/v1/files/notes.txt",
	} {
		w := get(t, s.Handler(), path)
		if w.Code == http.StatusOK {
			t.Errorf("%s should be rejected, got 200", path)
		}
	}
}

func TestGetFileNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Handler(), "/api/v1/files/absent.csv")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTopRanksByScore(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Handler(), "/api/v1/top?file=scored.csv&n=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp struct {
		Data []TopRow `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d rows, want 2", len(resp.Data))
	}
	if resp.Data[0].Address != "Stirling Road" || resp.Data[0].Score != 80.0 {
		t.Errorf("top row = %+v", resp.Data[0])
	}
	if resp.Data[0].Rank != 1 || resp.Data[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", resp.Data[0].Rank, resp.Data[1].Rank)
	}
}

func TestTopSkipsUnscoredRows(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s.Handler(), "/api/v1/top?file=scored.csv&n=50")
	var resp struct {
		Data []TopRow `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The blank-score row never appears.
	if len(resp.Data) != 3 {
		t.Fatalf("got %d rows, want 3", len(resp.Data))
	}
	for _, row := range resp.Data {
		if row.Address == "Falkirk High Street" {
			t.Error("unscored row leaked into ranking")
		}
	}
}

func TestTopValidatesParams(t *testing.T) {
	s, _ := newTestServer(t)
	if w := get(t, s.Handler(), "/api/v1/top"); w.Code != http.StatusBadRequest {
		t.Errorf("missing file: status = %d", w.Code)
	}
	if w := get(t, s.Handler(), "/api/v1/top?file=scored.csv&n=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("bad n: status = %d", w.Code)
	}
}
