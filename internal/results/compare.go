package results

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/KJWesthoff/ventiscan/internal/model"
)

// Drift reports how findings moved between two reconciled scans of the
// same target: what appeared, what went away, and what stayed but changed.
type Drift struct {
	BaseScanID string          `json:"base_scan_id"`
	HeadScanID string          `json:"head_scan_id"`
	Added      []model.Finding `json:"added"`
	Resolved   []model.Finding `json:"resolved"`
	Changed    []FindingDelta  `json:"changed"`
}

// FindingDelta describes one finding present in both scans whose severity
// or textual content shifted. TextDiff is a patch-format diff of the
// description and evidence text.
type FindingDelta struct {
	Key          string        `json:"key"`
	Base         model.Finding `json:"base"`
	Head         model.Finding `json:"head"`
	SeverityFrom string        `json:"severity_from,omitempty"`
	SeverityTo   string        `json:"severity_to,omitempty"`
	TextDiff     string        `json:"text_diff,omitempty"`
}

// driftKey identifies a finding across scans. Finding IDs incorporate the
// scan id so they cannot be used to correlate between scans.
func driftKey(f model.Finding) string {
	return strings.Join([]string{f.Scanner, f.Rule, f.Method, f.Endpoint}, "|")
}

func findingText(f model.Finding) string {
	var b strings.Builder
	b.WriteString(f.Description)
	if len(f.Evidence) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%v", f.Evidence)
	}
	return b.String()
}

// CompareStates computes the drift from base to head. Findings are matched
// by (scanner, rule, method, endpoint); duplicates within one scan match
// positionally.
func CompareStates(base, head *model.ScanResultsState) *Drift {
	drift := &Drift{
		BaseScanID: base.ScanID,
		HeadScanID: head.ScanID,
	}

	baseByKey := make(map[string][]model.Finding)
	for _, f := range base.Findings {
		baseByKey[driftKey(f)] = append(baseByKey[driftKey(f)], f)
	}

	dmp := diffmatchpatch.New()

	for _, hf := range head.Findings {
		key := driftKey(hf)
		remaining := baseByKey[key]
		if len(remaining) == 0 {
			drift.Added = append(drift.Added, hf)
			continue
		}
		bf := remaining[0]
		baseByKey[key] = remaining[1:]

		delta := FindingDelta{Key: key, Base: bf, Head: hf}
		changed := false

		if bf.Severity != hf.Severity {
			delta.SeverityFrom = bf.Severity
			delta.SeverityTo = hf.Severity
			changed = true
		}

		baseText, headText := findingText(bf), findingText(hf)
		if baseText != headText {
			patches := dmp.PatchMake(baseText, headText)
			delta.TextDiff = dmp.PatchToText(patches)
			changed = true
		}

		if changed {
			drift.Changed = append(drift.Changed, delta)
		}
	}

	for _, leftover := range baseByKey {
		drift.Resolved = append(drift.Resolved, leftover...)
	}

	return drift
}
