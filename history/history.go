// Package history persists swap metrics and remediation records across
// swapwatch restarts as JSON files under the state directory:
//
//	~/.local/state/swapwatch/
//	  metrics.json
//	  actions.json
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/swapwatch/monitor"
)

const (
	metricsKey = "metrics"
	actionsKey = "actions"
)

// Point is one persisted metrics observation.
type Point struct {
	Time        time.Time `json:"time"`
	SwapPercent float64   `json:"swap_percent"`
	MemPercent  float64   `json:"mem_percent"`
	State       string    `json:"state"`
}

// Store reads and writes the persisted history files. Writes are atomic
// (temp file then rename) so a crash mid-write never corrupts history.
type Store struct {
	dir        string
	maxEntries int
	logger     *slog.Logger
}

// NewStore creates a history store at the given directory, keeping at
// most maxEntries metrics points. The directory is created with 0700
// permissions if it does not exist.
func NewStore(dir string, maxEntries int, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("history: create directory %s: %w", dir, err)
	}
	return &Store{dir: dir, maxEntries: maxEntries, logger: logger}, nil
}

func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// AppendPoint adds one metrics observation, trimming the file to the
// configured maximum.
func (s *Store) AppendPoint(p Point) error {
	points, err := s.Points()
	if err != nil {
		return err
	}
	points = append(points, p)
	if s.maxEntries > 0 && len(points) > s.maxEntries {
		points = points[len(points)-s.maxEntries:]
	}
	return s.write(metricsKey, points)
}

// Points returns the persisted metrics observations, oldest first. A
// missing file yields an empty slice; a corrupted file is removed and
// treated the same way.
func (s *Store) Points() ([]Point, error) {
	var points []Point
	if err := s.read(metricsKey, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// SaveActions persists the remediation record log, newest first.
func (s *Store) SaveActions(records []monitor.ActionRecord) error {
	return s.write(actionsKey, records)
}

// Actions returns the persisted remediation records.
func (s *Store) Actions() ([]monitor.ActionRecord, error) {
	var records []monitor.ActionRecord
	if err := s.read(actionsKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Clear removes all persisted history files.
func (s *Store) Clear() error {
	for _, key := range []string{metricsKey, actionsKey} {
		if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("history: remove %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) read(key string, out interface{}) error {
	path := s.keyPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("history: read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// A corrupted file is dropped rather than wedging the daemon.
		s.logger.Warn("history: removing corrupted file",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		_ = os.Remove(path)
		return nil
	}
	return nil
}

// write stores a value with an atomic write (write to temp file, then
// rename) so concurrent readers never see a partial file.
func (s *Store) write(key string, data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal %s: %w", key, err)
	}

	path := s.keyPath(key)

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("history: create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any failure path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: chmod temp for %s: %w", key, err)
	}

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write temp for %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close temp for %s: %w", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("history: rename temp for %s: %w", key, err)
	}

	success = true
	return nil
}
