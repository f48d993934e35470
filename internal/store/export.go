package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// ExportDocument mirrors the stored shape for structured export.
type ExportDocument struct {
	Run     *Run               `json:"run"`
	Results []types.EvalResult `json:"results"`
}

// ExportJSON writes one run and all its results as an indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	run, err := s.GetRun(runID)
	if err != nil {
		return err
	}
	results, err := s.GetResults(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ExportDocument{Run: run, Results: results}); err != nil {
		return fmt.Errorf("export run %s: %w", runID, err)
	}
	return nil
}

// csvHeader is the flat tabular export column order.
var csvHeader = []string{
	"run_id", "benchmark", "provider", "item_id",
	"question", "expected", "actual", "score", "correct", "created_at",
}

// ExportCSV writes one run's results as a flat table. encoding/csv applies
// the standard quoting rules (fields quoted, embedded quotes doubled).
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	results, err := s.GetResults(runID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("export run %s: %w", runID, err)
	}
	for i := range results {
		r := &results[i]
		row := []string{
			r.RunID, r.Benchmark, r.Provider, r.ItemID,
			r.Question, r.Expected, r.Actual,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			strconv.FormatBool(r.Correct),
			r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export run %s: %w", runID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
