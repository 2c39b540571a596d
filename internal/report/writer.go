package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// New creates an empty report for a run targeting format.
func New(toolVersion, targetFormat string) *Report {
	return &Report{
		Schema:       SchemaVersion,
		ToolVersion:  toolVersion,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		TargetFormat: targetFormat,
		Entries:      []Entry{},
	}
}

// ComputeStats recalculates aggregate statistics from entries and failures.
func (r *Report) ComputeStats() {
	var s Stats
	s.Converted = len(r.Entries)
	s.Failed = len(r.Failures)
	for _, e := range r.Entries {
		s.TotalInputBytes += e.InputSize
		s.TotalOutputBytes += e.Output.Size
		if s.ByFormat == nil {
			s.ByFormat = make(map[string]int)
		}
		s.ByFormat[e.Format]++
	}
	r.Stats = s
}

// Sort orders entries and failures by source path so output is stable
// regardless of worker scheduling.
func (r *Report) Sort() {
	sort.Slice(r.Entries, func(i, j int) bool { return r.Entries[i].Source < r.Entries[j].Source })
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Source < r.Failures[j].Source })
}

// Encode writes the report as indented JSON.
func Encode(w io.Writer, r *Report) error {
	r.Sort()
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteJSON serializes the report to a file.
func WriteJSON(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
