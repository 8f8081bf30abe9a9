// Package report writes the outcome of one headless run to a directory, its metadata as
// JSON and the metrics of every drawn frame as CSV, and reads it back.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/sortviz/internal/metrics"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

var ErrNotFound = errors.New("report not found")

type Metadata struct {
	RunID      string        `json:"run_id"`
	Preset     string        `json:"preset"`
	Timestamp  time.Time     `json:"timestamp"`
	Seed       int64         `json:"seed"`
	Size       int           `json:"size"`
	Skip       int           `json:"skip"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Snapshots  uint64        `json:"snapshots"`
	Elapsed    time.Duration `json:"elapsed"`
	Sortedness float64       `json:"sortedness"`
	Inversions int64         `json:"inversions"`
}

type Report struct {
	Metadata
	Frames []metrics.Frame `json:"frames"`
}

// Write stores r in dir, creating it when missing. The zero Timestamp becomes the current
// time; the final sortedness and inversions are taken from the last frame.
func Write(dir string, r Report) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if n := len(r.Frames); n > 0 {
		r.Sortedness = r.Frames[n-1].Sortedness
		r.Inversions = r.Frames[n-1].Inversions
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	metaFile, err := os.Create(filepath.Join(dir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Metadata); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"frame", "sortedness", "inversions"}); err != nil {
		return err
	}
	for _, f := range r.Frames {
		row := []string{
			strconv.Itoa(f.Index),
			strconv.FormatFloat(f.Sortedness, 'f', 6, 64),
			strconv.FormatInt(f.Inversions, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Read loads the report stored in dir. Malformed frame rows are skipped.
func Read(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, err
	}

	r := &Report{}
	if err := json.Unmarshal(data, &r.Metadata); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metadataFile, err)
	}
	if r.Frames, err = readFrames(filepath.Join(dir, framesFile)); err != nil {
		return nil, err
	}
	return r, nil
}

func readFrames(path string) ([]metrics.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []metrics.Frame{}, nil
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []metrics.Frame{}, nil
	}

	frames := make([]metrics.Frame, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		index, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		sortedness, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		inversions, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			continue
		}
		frames = append(frames, metrics.Frame{Index: index, Sortedness: sortedness, Inversions: inversions})
	}
	return frames, nil
}

// ExportJSON writes the report, frames included, as indented JSON.
func (r *Report) ExportJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
