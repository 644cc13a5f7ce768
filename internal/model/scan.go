package model

import "time"

// Scan status values reported by the scanner service. Terminal statuses are
// StatusCompleted and StatusFailed; nothing after them is meaningful to poll.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ScanConfig is everything needed to launch a scan. Exactly one of SpecURL
// and SpecFile must be set; StartScan validates this before touching the
// network.
type ScanConfig struct {
	// ServerURL is the base URL of the API under test.
	ServerURL string `json:"server_url"`

	// SpecURL points at a reachable OpenAPI/Swagger document.
	SpecURL string `json:"spec_url,omitempty"`

	// SpecFile is an uploaded spec document; SpecFileName names the part.
	SpecFile     []byte `json:"-"`
	SpecFileName string `json:"spec_file_name,omitempty"`

	// Scanners is the non-empty set of scanner identifiers to run.
	Scanners []string `json:"scanners"`

	// Dangerous enables tests that may mutate the target.
	Dangerous bool `json:"dangerous"`

	// FuzzAuth enables authentication fuzzing probes.
	FuzzAuth bool `json:"fuzz_auth"`

	// RPS caps request rate against the target; 0 means service default.
	RPS int `json:"rps"`

	// MaxRequests bounds the total request budget; 0 means service default.
	MaxRequests int `json:"max_requests"`
}

// StartScanResult is the service's acknowledgement of a launched scan.
type StartScanResult struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}

// ChunkStatus reports one parallelized sub-job when the service fans a scan
// out across containers.
type ChunkStatus struct {
	Chunk    int    `json:"chunk"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// ScanStatus is a point-in-time read of job progress. Snapshots supersede
// each other and are never persisted independently. The server does not
// guarantee monotonic progress and FindingsCount is a hint that may be
// stale or wrong mid-scan.
type ScanStatus struct {
	ScanID        string        `json:"scan_id"`
	Status        string        `json:"status"`
	Progress      int           `json:"progress"`
	FindingsCount int           `json:"findings_count"`
	CurrentPhase  string        `json:"current_phase,omitempty"`
	CurrentProbe  string        `json:"current_probe,omitempty"`
	Chunks        []ChunkStatus `json:"chunk_status,omitempty"`

	// Error is set only when Status is "failed".
	Error string `json:"error,omitempty"`
}

// Terminal reports whether no further polling is meaningful.
func (s *ScanStatus) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// ScannerInfo describes one available scanner in the service catalog.
type ScannerInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// ScanListEntry is one prior scan as reported by the service, used for
// historical selection.
type ScanListEntry struct {
	ScanID    string    `json:"scan_id"`
	TargetURL string    `json:"target_url"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
