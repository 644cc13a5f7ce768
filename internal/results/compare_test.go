package results_test

import (
	"testing"

	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/results"
)

func finding(scanner, rule, method, endpoint, severity, desc string) model.Finding {
	return model.Finding{
		Scanner: scanner, Rule: rule, Method: method, Endpoint: endpoint,
		Severity: severity, Description: desc,
	}
}

func stateWith(scanID string, findings ...model.Finding) *model.ScanResultsState {
	return &model.ScanResultsState{ScanID: scanID, Status: model.StatusCompleted, Findings: findings}
}

func TestCompareStates_AddedAndResolved(t *testing.T) {
	t.Parallel()

	base := stateWith("old",
		finding("ventiapi", "bola", "GET", "/api/users/{id}", model.SeverityCritical, "d"),
		finding("zap", "cors-wildcard", "GET", "/health", model.SeverityLow, "d"),
	)
	head := stateWith("new",
		finding("ventiapi", "bola", "GET", "/api/users/{id}", model.SeverityCritical, "d"),
		finding("ventiapi", "sqli", "POST", "/api/search", model.SeverityHigh, "d"),
	)

	drift := results.CompareStates(base, head)

	if drift.BaseScanID != "old" || drift.HeadScanID != "new" {
		t.Errorf("ids = %s -> %s", drift.BaseScanID, drift.HeadScanID)
	}
	if len(drift.Added) != 1 || drift.Added[0].Rule != "sqli" {
		t.Errorf("Added = %+v", drift.Added)
	}
	if len(drift.Resolved) != 1 || drift.Resolved[0].Rule != "cors-wildcard" {
		t.Errorf("Resolved = %+v", drift.Resolved)
	}
	if len(drift.Changed) != 0 {
		t.Errorf("Changed = %+v", drift.Changed)
	}
}

func TestCompareStates_SeverityChange(t *testing.T) {
	t.Parallel()

	base := stateWith("old", finding("ventiapi", "bola", "GET", "/api/x", model.SeverityMedium, "d"))
	head := stateWith("new", finding("ventiapi", "bola", "GET", "/api/x", model.SeverityCritical, "d"))

	drift := results.CompareStates(base, head)

	if len(drift.Changed) != 1 {
		t.Fatalf("Changed = %+v", drift.Changed)
	}
	delta := drift.Changed[0]
	if delta.SeverityFrom != model.SeverityMedium || delta.SeverityTo != model.SeverityCritical {
		t.Errorf("severity %s -> %s", delta.SeverityFrom, delta.SeverityTo)
	}
}

func TestCompareStates_TextDrift(t *testing.T) {
	t.Parallel()

	base := stateWith("old", finding("ventiapi", "bola", "GET", "/api/x", model.SeverityHigh, "records 1-10 exposed"))
	head := stateWith("new", finding("ventiapi", "bola", "GET", "/api/x", model.SeverityHigh, "records 1-500 exposed"))

	drift := results.CompareStates(base, head)

	if len(drift.Changed) != 1 {
		t.Fatalf("Changed = %+v", drift.Changed)
	}
	if drift.Changed[0].TextDiff == "" {
		t.Error("expected a text diff for changed description")
	}
	if drift.Changed[0].SeverityFrom != "" {
		t.Error("unchanged severity should not be reported")
	}
}

func TestCompareStates_DuplicatesMatchPositionally(t *testing.T) {
	t.Parallel()

	dup := finding("ventiapi", "excessive-data-exposure", "GET", "/api/users/{id}", model.SeverityMedium, "d")
	base := stateWith("old", dup, dup)
	head := stateWith("new", dup)

	drift := results.CompareStates(base, head)

	if len(drift.Added) != 0 {
		t.Errorf("Added = %+v", drift.Added)
	}
	if len(drift.Resolved) != 1 {
		t.Errorf("Resolved = %+v (one duplicate went away)", drift.Resolved)
	}
}

func TestCompareStates_IdenticalStatesNoDrift(t *testing.T) {
	t.Parallel()

	f := finding("ventiapi", "bola", "GET", "/api/x", model.SeverityHigh, "d")
	drift := results.CompareStates(stateWith("a", f), stateWith("b", f))

	if len(drift.Added)+len(drift.Resolved)+len(drift.Changed) != 0 {
		t.Errorf("drift = %+v", drift)
	}
}
