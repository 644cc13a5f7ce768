package model

import "time"

// Severity buckets, highest first. RawFinding severities outside this set
// are normalized by the transformer (e.g. "Informational" maps to Low).
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// RawFinding is one vulnerability record exactly as the scanner service
// returns it. No derived fields; the transformer owns enrichment.
type RawFinding struct {
	Rule        string         `json:"rule"`
	Title       string         `json:"title"`
	Severity    string         `json:"severity"`
	Score       float64        `json:"score"`
	Endpoint    string         `json:"endpoint"`
	Method      string         `json:"method"`
	Description string         `json:"description"`
	Scanner     string         `json:"scanner"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}

// Finding is the normalized, UI-ready vulnerability record.
//
// ID is deterministic: re-fetching the same completed scan's findings twice
// yields identical ID sets, so consumers can dedupe and re-render
// idempotently. It is derived from scan id, scanner, rule, method, endpoint
// and a duplicate index, never from wall-clock time or randomness.
type Finding struct {
	ID          string         `json:"id"`
	Rule        string         `json:"rule"`
	Title       string         `json:"title"`
	Severity    string         `json:"severity"`
	Score       float64        `json:"score"`
	Endpoint    string         `json:"endpoint"`
	Method      string         `json:"method"`
	Description string         `json:"description"`
	Scanner     string         `json:"scanner"`
	Evidence    map[string]any `json:"evidence,omitempty"`

	// Classification derived from Rule via fixed lookup tables.
	OWASP string   `json:"owasp"`
	CWEs  []string `json:"cwes,omitempty"`
	NIST  []string `json:"nist,omitempty"`

	// Exposure is a heuristic from endpoint path substrings
	// (admin/internal/auth/public surfaces).
	Exposure string `json:"exposure"`

	// BlastRadius is a heuristic from the HTTP method (read/write/destructive).
	BlastRadius string `json:"blast_radius"`

	DetectedAt time.Time `json:"detected_at"`
}

// GroupKey is the bucket key used by the grouped-by-endpoint view,
// "{METHOD} {endpoint}".
func (f *Finding) GroupKey() string {
	return f.Method + " " + f.Endpoint
}

// Summary holds per-severity counts for a reconciled result set.
// Total always equals Critical+High+Medium+Low.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// ScanResultsState is the published, reconciled view of one scan. It is
// created as a running placeholder when a scan launches, transitions once
// to a terminal snapshot, and is replaced wholesale when the user loads a
// different historical scan.
type ScanResultsState struct {
	ScanID    string    `json:"scan_id"`
	TargetURL string    `json:"target_url"`
	Status    string    `json:"status"`
	ScanDate  time.Time `json:"scan_date"`
	Findings  []Finding `json:"findings"`
	Summary   Summary   `json:"summary"`

	// Error carries the terminal failure message when Status is "failed".
	Error string `json:"error,omitempty"`
}

// GroupedByEndpoint derives the "{METHOD} {endpoint}" index over Findings.
// It is computed on demand and never independently mutated, so it cannot
// drift from the finding list.
func (s *ScanResultsState) GroupedByEndpoint() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range s.Findings {
		key := f.GroupKey()
		out[key] = append(out[key], f)
	}
	return out
}

// Valid reports whether the state satisfies its invariants: summary totals
// agree with the finding list. Used by the store before publishing and
// after hydrating a persisted snapshot.
func (s *ScanResultsState) Valid() bool {
	if s.ScanID == "" {
		return false
	}
	if s.Summary.Total != len(s.Findings) {
		return false
	}
	sum := s.Summary.Critical + s.Summary.High + s.Summary.Medium + s.Summary.Low
	return sum == s.Summary.Total
}
