package diagnostics

import (
	"encoding/json"
	"time"

	"github.com/danitzn/sb-frontend/internal/models"
)

// Report is a diagnostics run as written by `diagnose --json`
type Report struct {
	RunID     string               `json:"run_id"`
	Target    string               `json:"target"`
	StartedAt time.Time            `json:"started_at"`
	Results   []models.ProbeResult `json:"results"`
}

// Counts tallies results by status
func (r Report) Counts() map[models.Status]int {
	counts := make(map[models.Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// Healthy reports whether no probe ended in error
func (r Report) Healthy() bool {
	return r.Counts()[models.StatusError] == 0
}

// JSON renders the report indented
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
