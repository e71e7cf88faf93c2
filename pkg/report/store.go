package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store persists one JSON document per run under a results directory
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("results directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create results directory %s: %v", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the record as <run_id>.json and returns the path
func (s *Store) Save(rec *Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return "", fmt.Errorf("could not encode result %s: %v", rec.Metadata.RunID, err)
	}
	path := filepath.Join(s.dir, rec.Metadata.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not write result %s: %v", path, err)
	}
	return path, nil
}

// Load reads a single record by run id
func (s *Store) Load(runID string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, runID+".json"))
	if err != nil {
		return nil, fmt.Errorf("result not found: %s", runID)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("could not decode result %s: %v", runID, err)
	}
	return &rec, nil
}

// Filter narrows Find results.  Zero-valued fields match everything.
type Filter struct {
	DeviceType string
	From       time.Time
	To         time.Time
}

func (f Filter) match(rec *Record) bool {
	if f.DeviceType != "" && !strings.EqualFold(rec.Metadata.DeviceType, f.DeviceType) {
		return false
	}
	if !f.From.IsZero() && rec.Metadata.StartTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.Metadata.StartTime.After(f.To) {
		return false
	}
	return true
}

// Find returns all matching records, newest first.  Files that fail to
// decode are skipped so one corrupt or half-written result does not hide
// the rest of the history.
func (s *Store) Find(f Filter) ([]*Record, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var records []*Record
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if f.match(&rec) {
			records = append(records, &rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Metadata.StartTime.After(records[j].Metadata.StartTime)
	})
	return records, nil
}
