package transform

import "strings"

// Classification is the derived categorization attached to a finding,
// looked up from its rule identifier.
type Classification struct {
	OWASP string
	CWEs  []string
	NIST  []string
}

// fallbackClassification is used for rules the tables do not know. Unknown
// rules must still classify rather than fail the whole reconciliation.
var fallbackClassification = Classification{
	OWASP: "API8:2023 Security Misconfiguration",
	NIST:  []string{"ID.RA-1"},
}

// ruleClassifications keys on the raw rule identifier emitted by the
// scanners. Tags combine OWASP API Top 10 (2023), CWE ids and NIST
// CSF/800-53 identifiers.
var ruleClassifications = map[string]Classification{
	"bola": {
		OWASP: "API1:2023 Broken Object Level Authorization",
		CWEs:  []string{"CWE-639"},
		NIST:  []string{"PR.AC-4", "AC-3"},
	},
	"broken-auth": {
		OWASP: "API2:2023 Broken Authentication",
		CWEs:  []string{"CWE-287"},
		NIST:  []string{"PR.AC-7", "IA-2"},
	},
	"jwt-weak-signing": {
		OWASP: "API2:2023 Broken Authentication",
		CWEs:  []string{"CWE-345", "CWE-347"},
		NIST:  []string{"PR.AC-7", "IA-5"},
	},
	"excessive-data-exposure": {
		OWASP: "API3:2023 Broken Object Property Level Authorization",
		CWEs:  []string{"CWE-213"},
		NIST:  []string{"PR.DS-5", "SC-8"},
	},
	"mass-assignment": {
		OWASP: "API3:2023 Broken Object Property Level Authorization",
		CWEs:  []string{"CWE-915"},
		NIST:  []string{"PR.DS-5", "SI-10"},
	},
	"rate-limit-missing": {
		OWASP: "API4:2023 Unrestricted Resource Consumption",
		CWEs:  []string{"CWE-770"},
		NIST:  []string{"PR.DS-4", "SC-5"},
	},
	"bfla": {
		OWASP: "API5:2023 Broken Function Level Authorization",
		CWEs:  []string{"CWE-285"},
		NIST:  []string{"PR.AC-4", "AC-6"},
	},
	"sqli": {
		OWASP: "API8:2023 Security Misconfiguration",
		CWEs:  []string{"CWE-89"},
		NIST:  []string{"PR.IP-1", "SI-10"},
	},
	"ssrf": {
		OWASP: "API7:2023 Server Side Request Forgery",
		CWEs:  []string{"CWE-918"},
		NIST:  []string{"PR.PT-4", "SC-7"},
	},
	"cors-wildcard": {
		OWASP: "API8:2023 Security Misconfiguration",
		CWEs:  []string{"CWE-942"},
		NIST:  []string{"PR.IP-1", "CM-6"},
	},
	"debug-endpoint": {
		OWASP: "API9:2023 Improper Inventory Management",
		CWEs:  []string{"CWE-489"},
		NIST:  []string{"ID.AM-2", "CM-8"},
	},
	"unsafe-consumption": {
		OWASP: "API10:2023 Unsafe Consumption of APIs",
		CWEs:  []string{"CWE-829"},
		NIST:  []string{"ID.SC-4", "SA-9"},
	},
}

// Classify resolves a rule id to its classification, falling back for
// unknown rules.
func Classify(rule string) Classification {
	if c, ok := ruleClassifications[strings.ToLower(strings.TrimSpace(rule))]; ok {
		return c
	}
	return fallbackClassification
}

// Exposure buckets an endpoint path by surface. Substring checks are crude
// but cheap, and only feed a triage hint, never access decisions.
func Exposure(endpoint string) string {
	p := strings.ToLower(endpoint)
	switch {
	case strings.Contains(p, "/admin") || strings.Contains(p, "/internal") || strings.Contains(p, "/debug"):
		return "administrative"
	case strings.Contains(p, "/auth") || strings.Contains(p, "/login") || strings.Contains(p, "/token"):
		return "authentication"
	case strings.Contains(p, "/health") || strings.Contains(p, "/status") || strings.Contains(p, "/public"):
		return "public"
	default:
		return "general"
	}
}

// BlastRadius buckets the HTTP method by how much damage a successful
// exploit could do.
func BlastRadius(method string) string {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "GET", "HEAD", "OPTIONS":
		return "read"
	case "POST", "PUT", "PATCH":
		return "write"
	case "DELETE":
		return "destructive"
	default:
		return "unknown"
	}
}
