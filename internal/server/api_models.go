package server

// StartScanRequest is the JSON payload for launching a scan. File uploads
// use the multipart form variant of the same endpoint instead.
type StartScanRequest struct {
	ServerURL   string   `json:"server_url" example:"https://api.example.com"`
	SpecURL     string   `json:"spec_url,omitempty" example:"https://api.example.com/openapi.json"`
	Scanners    []string `json:"scanners" example:"ventiapi,zap"`
	Dangerous   bool     `json:"dangerous" example:"false"`
	FuzzAuth    bool     `json:"fuzz_auth" example:"false"`
	RPS         int      `json:"rps" example:"10"`
	MaxRequests int      `json:"max_requests" example:"1000"`
}

// StartScanResponse acknowledges a launched scan.
type StartScanResponse struct {
	ScanID    string `json:"scan_id" example:"b2f1c0de-4a5b-4b6c-8d7e-9f0a1b2c3d4e"`
	Status    string `json:"status" example:"running"`
	TargetURL string `json:"target_url" example:"https://api.example.com"`
}

// StatusResponse summarizes the pipeline for dashboard polling fallback.
type StatusResponse struct {
	Running      bool   `json:"running" example:"true"`
	HasResults   bool   `json:"has_results" example:"false"`
	ActiveScanID string `json:"active_scan_id,omitempty" example:"b2f1c0de-4a5b-4b6c-8d7e-9f0a1b2c3d4e"`
	Progress     int    `json:"progress" example:"42"`
	LastError    string `json:"last_error,omitempty" example:"service unreachable"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
