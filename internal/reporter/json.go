// Package reporter serializes a ScanReport as text or JSON (C7).
package reporter

import (
	"encoding/json"

	"github.com/codenerd-labs/auditor/internal/model"
)

// JSON renders r as the canonical wire-format report, per spec.md §6.
func JSON(r *model.ScanReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ParseJSON is the consumer-side counterpart to JSON, used by tests to
// assert the round-trip property in spec.md §8.
func ParseJSON(data []byte) (*model.ScanReport, error) {
	var r model.ScanReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
