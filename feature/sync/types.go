package sync

import "time"

// Domain pass outcomes.
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// AccountObservation is one fully collected account: quota read from the CLI,
// usage taken from the report snapshot. A nil AssignedMB means unlimited.
type AccountObservation struct {
	Email      string
	LocalPart  string
	AssignedMB *int64
	UsedMB     int64
}

// ProcessError is one recoverable failure inside a domain pass, tagged with
// the stage it occurred at.
type ProcessError struct {
	Email string
	Stage string
	Err   string
}

// DomainResult is the outcome of one domain pass.
type DomainResult struct {
	Domain   string
	Status   string
	Accounts []AccountObservation
	Errors   []ProcessError
	Duration time.Duration
}

// Report is the per-server tally of a dispatched batch.
type Report struct {
	TotalDomains int
	Success      int
	Partial      int
	Failed       int
	Duration     time.Duration
}

// ServerReport is one server's slice of the run report.
type ServerReport struct {
	Server        string    `json:"server"`
	Domains       int       `json:"domains"`
	Success       int       `json:"success"`
	Partial       int       `json:"partial"`
	Failed        int       `json:"failed"`
	EventsEmitted int       `json:"events_emitted"`
	UsageSkipped  bool      `json:"usage_skipped"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
}

// RunReport is the full run summary, also the shape archived to object
// storage.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Servers    []ServerReport `json:"servers"`
}
