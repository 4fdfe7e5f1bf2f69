package progress

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ExportRow is one trainee's flattened progress for admin export
type ExportRow struct {
	UserID            string `json:"user_id"`
	LabsTracked       int    `json:"labs_tracked"`
	LabsCompleted     int    `json:"labs_completed"`
	CompletionPercent int    `json:"completion_percent"`
}

// Export flattens all progress records into export rows, sorted by user id
// for stable output.
func (s *Store) Export(ctx context.Context) ([]ExportRow, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(records))
	for _, rec := range records {
		completed := 0
		for _, lab := range rec.Labs {
			if lab.Status == StatusCompleted {
				completed++
			}
		}
		rows = append(rows, ExportRow{
			UserID:            rec.UserID,
			LabsTracked:       len(rec.Labs),
			LabsCompleted:     completed,
			CompletionPercent: rec.CompletionPercent(),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

// ExportJSON renders the export rows as JSON.
func (s *Store) ExportJSON(ctx context.Context) ([]byte, error) {
	rows, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rows)
}

// ExportCSV renders the export rows as CSV with a header row.
func (s *Store) ExportCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"user_id", "labs_tracked", "labs_completed", "completion_percent"}); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.UserID,
			strconv.Itoa(row.LabsTracked),
			strconv.Itoa(row.LabsCompleted),
			strconv.Itoa(row.CompletionPercent),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}
