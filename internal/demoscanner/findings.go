package demoscanner

import "github.com/KJWesthoff/ventiscan/internal/model"

// sampleFindings is the canned result set every demo scan produces. It
// covers the severity spread and a duplicate rule hit so the dashboard's
// grouping and dedup paths all light up.
func sampleFindings() []model.RawFinding {
	return []model.RawFinding{
		{
			Rule:        "bola",
			Title:       "Broken Object Level Authorization",
			Severity:    "Critical",
			Score:       9.1,
			Endpoint:    "/api/users/{id}/orders",
			Method:      "GET",
			Description: "Order records belonging to other users were retrievable by iterating numeric identifiers.",
			Scanner:     "ventiapi",
			Evidence: map[string]any{
				"request_id": "1042",
				"foreign_id": "1043",
			},
		},
		{
			Rule:        "jwt-weak-signing",
			Title:       "JWT accepts weak signing algorithm",
			Severity:    "High",
			Score:       7.4,
			Endpoint:    "/api/auth/refresh",
			Method:      "POST",
			Description: "The token endpoint accepted a token re-signed with HS256 using the public key as secret.",
			Scanner:     "ventiapi",
		},
		{
			Rule:        "rate-limit-missing",
			Title:       "No rate limiting on authentication",
			Severity:    "Medium",
			Score:       5.3,
			Endpoint:    "/api/auth/login",
			Method:      "POST",
			Description: "500 login attempts completed without throttling or lockout.",
			Scanner:     "zap",
		},
		{
			Rule:        "excessive-data-exposure",
			Title:       "Response leaks internal fields",
			Severity:    "Medium",
			Score:       5.0,
			Endpoint:    "/api/users/{id}",
			Method:      "GET",
			Description: "User responses include password hash and internal role flags.",
			Scanner:     "ventiapi",
		},
		{
			Rule:        "excessive-data-exposure",
			Title:       "Response leaks internal fields",
			Severity:    "Medium",
			Score:       5.0,
			Endpoint:    "/api/users/{id}",
			Method:      "GET",
			Description: "Duplicate hit from a second probe variant.",
			Scanner:     "ventiapi",
		},
		{
			Rule:        "cors-wildcard",
			Title:       "CORS allows any origin",
			Severity:    "Low",
			Score:       3.1,
			Endpoint:    "/api/health",
			Method:      "GET",
			Description: "Access-Control-Allow-Origin is * on a credentialed endpoint.",
			Scanner:     "zap",
		},
		{
			Rule:        "debug-endpoint",
			Title:       "Debug endpoint reachable",
			Severity:    "Informational",
			Score:       1.0,
			Endpoint:    "/internal/debug/vars",
			Method:      "GET",
			Description: "expvar output is exposed without authentication.",
			Scanner:     "zap",
		},
	}
}
