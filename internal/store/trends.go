package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codenerd-labs/auditor/internal/model"
)

type reportSummaryOnly struct {
	Summary model.Summary `json:"summary"`
}

// GetTrends returns the ascending-by-time trend series for a project's
// completed scans, per spec.md §4.8. A nil since is treated as the
// epoch, per §8's boundary-behavior requirement.
func (s *Store) GetTrends(projectID string, since *time.Time) ([]TrendPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sinceVal := time.Unix(0, 0).UTC()
	if since != nil {
		sinceVal = since.UTC()
	}

	rows, err := s.db.Query(
		`SELECT id, started_at, report_json FROM scans WHERE project_id = ? AND status = ? ORDER BY started_at ASC`,
		projectID, string(ScanCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("store: get trends: %w", err)
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var id, startedAtStr string
		var reportJSON *string
		if err := rows.Scan(&id, &startedAtStr, &reportJSON); err != nil {
			return nil, fmt.Errorf("store: get trends: %w", err)
		}
		startedAt := parseTime(startedAtStr)
		if startedAt.Before(sinceVal) {
			continue
		}
		if reportJSON == nil {
			continue
		}
		var rs reportSummaryOnly
		if err := json.Unmarshal([]byte(*reportJSON), &rs); err != nil {
			continue // malformed report JSON; skip rather than fail the whole query
		}
		out = append(out, TrendPoint{ScanID: id, StartedAt: startedAt, Summary: rs.Summary})
	}
	return out, rows.Err()
}
