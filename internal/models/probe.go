package models

// Status is the outcome of a single diagnostic probe
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
	StatusLoading Status = "loading"
)

// IsTerminal reports whether the status is final
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusWarning:
		return true
	default:
		return false
	}
}

// Icon returns the glyph shown next to a result
func (s Status) Icon() string {
	switch s {
	case StatusSuccess:
		return "✓"
	case StatusError:
		return "✗"
	case StatusWarning:
		return "!"
	case StatusLoading:
		return "…"
	default:
		return "?"
	}
}

// ProbeResult is one entry of a diagnostics report. ElapsedMs is nil while
// loading and for results that have no timing.
type ProbeResult struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	ElapsedMs *int64 `json:"elapsed_ms,omitempty"`
}

// Elapsed returns the elapsed time or 0 when unset
func (r ProbeResult) Elapsed() int64 {
	if r.ElapsedMs == nil {
		return 0
	}
	return *r.ElapsedMs
}

// Millis returns a pointer for ProbeResult.ElapsedMs
func Millis(ms int64) *int64 {
	return &ms
}
