package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ewanmck/rentscout/pkg/logging"
	"github.com/ewanmck/rentscout/pkg/property"
)

// Server exposes scored result files over HTTP for the review UI:
// list the CSVs in the results directory, download one, or pull the
// top-ranked rows of one as JSON.
type Server struct {
	resultsDir string
	port       int
	log        *logging.Logger
}

func New(resultsDir string, port int, log *logging.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	if resultsDir == "" {
		resultsDir = "."
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Server{resultsDir: resultsDir, port: port, log: log}
}

// Handler returns the route table; split out so tests can drive it
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/files", s.handleListFiles)
	mux.HandleFunc("/api/v1/files/", s.handleGetFile)
	mux.HandleFunc("/api/v1/top", s.handleTop)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("results server listening", "addr", addr, "dir", s.resultsDir)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	files := []fileInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Modified.After(files[j].Modified) })

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  files,
		"count": len(files),
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/files/")
	path, err := s.resolve(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such file"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// TopRow is one scored listing in ranked order.
type TopRow struct {
	Rank    int               `json:"rank"`
	Score   float64           `json:"score"`
	Address string            `json:"address"`
	URL     string            `json:"url,omitempty"`
	Fields  map[string]string `json:"fields"`
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	name := r.URL.Query().Get("file")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file parameter required"})
		return
	}
	limit := 10
	if v := r.URL.Query().Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		limit = n
	}

	path, err := s.resolve(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := ReadScoredRows(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if limit > len(rows) {
		limit = len(rows)
	}
	rows = rows[:limit]
	for i := range rows {
		rows[i].Rank = i + 1
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  rows,
		"count": len(rows),
	})
}

// resolve maps a requested file name into the results directory,
// rejecting anything that would escape it.
func (s *Server) resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if !strings.HasSuffix(name, ".csv") {
		return "", fmt.Errorf("not a csv file: %q", name)
	}
	return filepath.Join(s.resultsDir, name), nil
}

// ReadScoredRows loads a scored CSV and returns its rows ordered by
// combined score, best first. Rows without a score are dropped.
func ReadScoredRows(path string) ([]TopRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	scoreIdx, ok := col[property.ColCombinedScore]
	if !ok {
		return nil, fmt.Errorf("%s has no %s column", filepath.Base(path), property.ColCombinedScore)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	var rows []TopRow
	for _, rec := range records {
		if scoreIdx >= len(rec) {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[scoreIdx]), 64)
		if err != nil {
			continue
		}
		row := TopRow{Score: score, Fields: make(map[string]string, len(header))}
		for name, i := range col {
			if i < len(rec) {
				row.Fields[name] = rec[i]
			}
		}
		row.Address = row.Fields[property.ColAddress]
		row.URL = row.Fields[property.ColURL]
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
