package transform_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/transform"
)

func rawFinding(rule, method, endpoint string) model.RawFinding {
	return model.RawFinding{
		Rule:        rule,
		Title:       "title for " + rule,
		Severity:    "High",
		Score:       7.0,
		Endpoint:    endpoint,
		Method:      method,
		Description: "desc",
		Scanner:     "ventiapi",
	}
}

// ─── Severity ──────────────────────────────────────────────────────────

func TestNormalizeSeverity(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Critical":      model.SeverityCritical,
		"critical":      model.SeverityCritical,
		"HIGH":          model.SeverityHigh,
		"Medium":        model.SeverityMedium,
		"moderate":      model.SeverityMedium,
		"low":           model.SeverityLow,
		"Informational": model.SeverityLow,
		"info":          model.SeverityLow,
		"  High  ":      model.SeverityHigh,
		"bananas":       model.SeverityLow,
		"":              model.SeverityLow,
	}
	for in, want := range cases {
		if got := transform.NormalizeSeverity(in); got != want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", in, got, want)
		}
	}
}

// ─── IDs ───────────────────────────────────────────────────────────────

func TestFindingSet_DeterministicIDs(t *testing.T) {
	t.Parallel()

	raws := []model.RawFinding{
		rawFinding("bola", "GET", "/api/users/{id}"),
		rawFinding("sqli", "POST", "/api/search"),
	}
	date := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first := transform.FindingSet("scan-1", date, raws)
	second := transform.FindingSet("scan-1", date, raws)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("two transforms of the same batch differ")
	}
	for i := range first {
		if first[i].ID == "" || len(first[i].ID) != 16 {
			t.Errorf("finding %d: unexpected id %q", i, first[i].ID)
		}
	}
}

func TestFindingSet_DifferentScansDifferentIDs(t *testing.T) {
	t.Parallel()

	raws := []model.RawFinding{rawFinding("bola", "GET", "/api/users/{id}")}
	date := time.Now().UTC()

	a := transform.FindingSet("scan-a", date, raws)
	b := transform.FindingSet("scan-b", date, raws)

	if a[0].ID == b[0].ID {
		t.Errorf("same id %q across different scans", a[0].ID)
	}
}

func TestFindingSet_DuplicateTupleGetsDistinctIDs(t *testing.T) {
	t.Parallel()

	dup := rawFinding("excessive-data-exposure", "GET", "/api/users/{id}")
	raws := []model.RawFinding{dup, dup, dup}

	findings := transform.FindingSet("scan-1", time.Now().UTC(), raws)

	seen := make(map[string]bool)
	for _, f := range findings {
		if seen[f.ID] {
			t.Fatalf("duplicate id %q within one batch", f.ID)
		}
		seen[f.ID] = true
	}
}

// ─── Enrichment ────────────────────────────────────────────────────────

func TestFinding_Classification(t *testing.T) {
	t.Parallel()

	f := transform.Finding("scan-1", time.Now().UTC(), rawFinding("bola", "GET", "/api/users/{id}"), 0)

	if f.OWASP != "API1:2023 Broken Object Level Authorization" {
		t.Errorf("OWASP = %q", f.OWASP)
	}
	if len(f.CWEs) == 0 || f.CWEs[0] != "CWE-639" {
		t.Errorf("CWEs = %v", f.CWEs)
	}
	if len(f.NIST) == 0 {
		t.Error("expected NIST tags")
	}
}

func TestFinding_UnknownRuleFallsBack(t *testing.T) {
	t.Parallel()

	f := transform.Finding("scan-1", time.Now().UTC(), rawFinding("made-up-rule", "GET", "/x"), 0)

	if f.OWASP == "" {
		t.Error("unknown rule produced empty OWASP classification")
	}
	if len(f.NIST) == 0 {
		t.Error("unknown rule produced no NIST tags")
	}
}

func TestFinding_TitleFallsBackToRule(t *testing.T) {
	t.Parallel()

	raw := rawFinding("bola", "GET", "/x")
	raw.Title = ""
	f := transform.Finding("scan-1", time.Now().UTC(), raw, 0)

	if f.Title != "bola" {
		t.Errorf("Title = %q, want rule id", f.Title)
	}
}

func TestExposure(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/admin/users":       "administrative",
		"/internal/debug":    "administrative",
		"/api/auth/login":    "authentication",
		"/api/token/refresh": "authentication",
		"/health":            "public",
		"/api/orders":        "general",
	}
	for in, want := range cases {
		if got := transform.Exposure(in); got != want {
			t.Errorf("Exposure(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBlastRadius(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"GET":     "read",
		"get":     "read",
		"POST":    "write",
		"PATCH":   "write",
		"DELETE":  "destructive",
		"CONNECT": "unknown",
	}
	for in, want := range cases {
		if got := transform.BlastRadius(in); got != want {
			t.Errorf("BlastRadius(%q) = %q, want %q", in, got, want)
		}
	}
}

// ─── Summary ───────────────────────────────────────────────────────────

func TestSummarize_CountsMatchFindings(t *testing.T) {
	t.Parallel()

	mk := func(sev string) model.Finding { return model.Finding{Severity: sev} }
	findings := []model.Finding{
		mk(model.SeverityCritical),
		mk(model.SeverityHigh), mk(model.SeverityHigh),
		mk(model.SeverityMedium),
		mk(model.SeverityLow), mk(model.SeverityLow), mk(model.SeverityLow),
	}

	s := transform.Summarize(findings)

	if s.Critical != 1 || s.High != 2 || s.Medium != 1 || s.Low != 3 {
		t.Errorf("unexpected buckets: %+v", s)
	}
	if s.Total != len(findings) {
		t.Errorf("Total = %d, want %d", s.Total, len(findings))
	}
	if s.Critical+s.High+s.Medium+s.Low != s.Total {
		t.Errorf("buckets do not sum to total: %+v", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := transform.Summarize(nil)
	if s.Total != 0 {
		t.Errorf("Total = %d, want 0", s.Total)
	}
}
