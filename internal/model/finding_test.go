package model_test

import (
	"testing"

	"github.com/KJWesthoff/ventiscan/internal/model"
)

func validState() *model.ScanResultsState {
	return &model.ScanResultsState{
		ScanID: "scan-1",
		Status: model.StatusCompleted,
		Findings: []model.Finding{
			{ID: "a", Severity: model.SeverityHigh, Method: "GET", Endpoint: "/api/users"},
			{ID: "b", Severity: model.SeverityLow, Method: "GET", Endpoint: "/api/users"},
			{ID: "c", Severity: model.SeverityLow, Method: "POST", Endpoint: "/api/users"},
		},
		Summary: model.Summary{High: 1, Low: 2, Total: 3},
	}
}

func TestScanResultsState_Valid(t *testing.T) {
	t.Parallel()

	if !validState().Valid() {
		t.Error("consistent state reported invalid")
	}

	s := validState()
	s.Summary.Total = 5
	if s.Valid() {
		t.Error("total/findings mismatch reported valid")
	}

	s = validState()
	s.Summary.Low = 0
	s.Summary.Total = 3
	if s.Valid() {
		t.Error("bucket sum mismatch reported valid")
	}

	s = validState()
	s.ScanID = ""
	if s.Valid() {
		t.Error("empty scan id reported valid")
	}
}

func TestScanResultsState_GroupedByEndpoint(t *testing.T) {
	t.Parallel()

	groups := validState().GroupedByEndpoint()

	if len(groups) != 2 {
		t.Fatalf("got %d groups", len(groups))
	}
	if got := len(groups["GET /api/users"]); got != 2 {
		t.Errorf("GET group has %d findings", got)
	}
	if got := len(groups["POST /api/users"]); got != 1 {
		t.Errorf("POST group has %d findings", got)
	}
}

func TestScanStatus_Terminal(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		model.StatusPending:   false,
		model.StatusRunning:   false,
		model.StatusCompleted: true,
		model.StatusFailed:    true,
	}
	for status, want := range cases {
		st := &model.ScanStatus{Status: status}
		if st.Terminal() != want {
			t.Errorf("Terminal(%q) = %v, want %v", status, st.Terminal(), want)
		}
	}
}
