// Package transform maps raw scanner findings into the enriched, UI-ready
// shape. Everything here is pure and deterministic: transforming the same
// raw findings for the same scan twice yields byte-identical results,
// including IDs, which is what makes re-fetches and re-renders idempotent.
package transform

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/model"
)

// NormalizeSeverity maps service severities onto the four canonical
// buckets. Informational and anything unrecognized rank as Low.
func NormalizeSeverity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return model.SeverityCritical
	case "high":
		return model.SeverityHigh
	case "medium", "moderate":
		return model.SeverityMedium
	case "low", "informational", "info":
		return model.SeverityLow
	default:
		return model.SeverityLow
	}
}

// findingID derives the stable id for one raw finding. dupIndex
// disambiguates findings whose identifying tuple is otherwise identical,
// keeping ids unique while staying deterministic across re-fetches.
func findingID(scanID string, f model.RawFinding, dupIndex int) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d", scanID, f.Scanner, f.Rule, f.Method, f.Endpoint, dupIndex)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Finding converts one raw finding. dupIndex must count previous raw
// findings in the same batch with the same (scanner, rule, method,
// endpoint) tuple; FindingSet handles that bookkeeping.
func Finding(scanID string, scanDate time.Time, raw model.RawFinding, dupIndex int) model.Finding {
	class := Classify(raw.Rule)
	title := raw.Title
	if title == "" {
		title = raw.Rule
	}
	return model.Finding{
		ID:          findingID(scanID, raw, dupIndex),
		Rule:        raw.Rule,
		Title:       title,
		Severity:    NormalizeSeverity(raw.Severity),
		Score:       raw.Score,
		Endpoint:    raw.Endpoint,
		Method:      strings.ToUpper(raw.Method),
		Description: raw.Description,
		Scanner:     raw.Scanner,
		Evidence:    raw.Evidence,
		OWASP:       class.OWASP,
		CWEs:        class.CWEs,
		NIST:        class.NIST,
		Exposure:    Exposure(raw.Endpoint),
		BlastRadius: BlastRadius(raw.Method),
		DetectedAt:  scanDate,
	}
}

// FindingSet converts a whole raw batch, preserving order and assigning
// duplicate indexes per identifying tuple.
func FindingSet(scanID string, scanDate time.Time, raws []model.RawFinding) []model.Finding {
	out := make([]model.Finding, 0, len(raws))
	seen := make(map[string]int)
	for _, raw := range raws {
		key := strings.Join([]string{raw.Scanner, raw.Rule, raw.Method, raw.Endpoint}, "|")
		idx := seen[key]
		seen[key] = idx + 1
		out = append(out, Finding(scanID, scanDate, raw, idx))
	}
	return out
}

// Summarize counts findings per severity bucket.
func Summarize(findings []model.Finding) model.Summary {
	var s model.Summary
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityHigh:
			s.High++
		case model.SeverityMedium:
			s.Medium++
		case model.SeverityLow:
			s.Low++
		}
	}
	s.Total = len(findings)
	return s
}
