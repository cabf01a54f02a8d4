package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RunRecord is the on-disk trace of one command invocation: which
// command ran, with which mode, and what it did to the data. Metrics
// carry counters like records read, records dropped per cleaning stage,
// records scored and records left unscored.
type RunRecord struct {
	ID          string           `json:"id"`
	Command     string           `json:"command"`
	Mode        string           `json:"mode,omitempty"`
	Input       string           `json:"input,omitempty"`
	Output      string           `json:"output,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
	Status      Status           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Metrics     map[string]int64 `json:"metrics,omitempty"`
}

// AddMetric increments a named counter on the record.
func (r *RunRecord) AddMetric(name string, n int64) {
	if r == nil {
		return
	}
	if r.Metrics == nil {
		r.Metrics = make(map[string]int64)
	}
	r.Metrics[name] += n
}

// Recorder writes one JSON file per run into a directory. A nil
// Recorder is valid and records nothing, so commands can run without a
// run-log directory configured.
type Recorder struct {
	dir string
	now func() time.Time
}

func NewRecorder(dir string) *Recorder {
	if dir == "" {
		return nil
	}
	return &Recorder{
		dir: dir,
		now: time.Now,
	}
}

func (r *Recorder) Start(command string) (*RunRecord, error) {
	if r == nil {
		return &RunRecord{Command: command, StartedAt: time.Now(), Status: StatusStarted}, nil
	}
	record := &RunRecord{
		ID:        r.now().UTC().Format("20060102T150405Z"),
		Command:   command,
		StartedAt: r.now(),
		Status:    StatusStarted,
	}
	if err := r.write(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Recorder) Finish(record *RunRecord, runErr error) error {
	if record == nil {
		return errors.New("runlog: record is nil")
	}
	if runErr != nil {
		record.Status = StatusFailed
		record.Error = runErr.Error()
	} else {
		record.Status = StatusCompleted
		record.Error = ""
	}
	if r == nil {
		record.CompletedAt = time.Now()
		return nil
	}
	record.CompletedAt = r.now()
	return r.write(record)
}

func (r *Recorder) write(record *RunRecord) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	path := filepath.Join(r.dir, fmt.Sprintf("run-%s-%s.json", record.ID, record.Command))
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}
