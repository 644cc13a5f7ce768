// Package demoscanner is a self-contained stand-in for the external scanner
// service. It speaks the same REST surface the real service does, with
// scripted progress and a configurable delay before findings appear, so the
// full pipeline can be demonstrated and exercised without infrastructure.
package demoscanner

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/KJWesthoff/ventiscan/internal/model"
)

// demoScan tracks one launched scan's scripted lifecycle.
type demoScan struct {
	ID        string
	TargetURL string
	StartedAt time.Time

	polls            int
	findingsRequests int
	findings         []model.RawFinding
}

// DemoScanner is the fake scanner service.
type DemoScanner struct {
	cfg Config

	mu    sync.Mutex
	scans map[string]*demoScan
	order []string
}

// NewDemoScanner creates a new demo scanner instance.
func NewDemoScanner(cfg Config) *DemoScanner {
	return &DemoScanner{
		cfg:   cfg,
		scans: make(map[string]*demoScan),
	}
}

// Router builds the REST surface.
func (d *DemoScanner) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/auth/login", d.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(d.requireToken)
		r.Post("/api/scan/start", d.handleStartScan)
		r.Get("/api/scan/{scanID}/status", d.handleStatus)
		r.Get("/api/scan/{scanID}/findings", d.handleFindings)
		r.Get("/api/scanners", d.handleScanners)
		r.Get("/api/scans", d.handleListScans)
	})

	return r
}

// Start starts the demo service.
func (d *DemoScanner) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Port)
	fmt.Printf("Demo scanner service on http://localhost%s\n", addr)
	fmt.Printf("Login with %s / %s\n", d.cfg.Username, d.cfg.Password)
	return http.ListenAndServe(addr, d.Router())
}

// ─── auth ──────────────────────────────────────────────────────────────

func (d *DemoScanner) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Username != d.cfg.Username || body.Password != d.cfg.Password {
		httpError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": body.Username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(30 * time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(d.cfg.SigningKey))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "signing token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": signed,
		"token_type":   "bearer",
	})
}

func (d *DemoScanner) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			httpError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(d.cfg.SigningKey), nil
		})
		if err != nil {
			httpError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── scan lifecycle ────────────────────────────────────────────────────

func (d *DemoScanner) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	target := r.FormValue("server_url")
	if target == "" {
		httpError(w, http.StatusBadRequest, "server_url is required")
		return
	}
	if r.FormValue("scanners") == "" {
		httpError(w, http.StatusBadRequest, "scanners is required")
		return
	}

	// Spec comes either by URL or upload, same as the real service.
	hasSpec := r.FormValue("target_url") != ""
	if _, _, err := r.FormFile("spec_file"); err == nil {
		hasSpec = true
	}
	if !hasSpec {
		httpError(w, http.StatusBadRequest, "a spec URL or spec file is required")
		return
	}

	scan := &demoScan{
		ID:        uuid.New().String(),
		TargetURL: target,
		StartedAt: time.Now().UTC(),
		findings:  sampleFindings(),
	}

	d.mu.Lock()
	d.scans[scan.ID] = scan
	d.order = append(d.order, scan.ID)
	d.mu.Unlock()

	writeJSON(w, http.StatusAccepted, model.StartScanResult{
		ScanID: scan.ID,
		Status: model.StatusRunning,
	})
}

func (d *DemoScanner) handleStatus(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	d.mu.Lock()
	scan, ok := d.scans[scanID]
	if !ok {
		d.mu.Unlock()
		httpError(w, http.StatusNotFound, "scan not found")
		return
	}

	// Progress advances one step per poll.
	if scan.polls < d.cfg.StatusSteps {
		scan.polls++
	}
	polls := scan.polls
	count := len(scan.findings)
	d.mu.Unlock()

	st := model.ScanStatus{
		ScanID:   scanID,
		Status:   model.StatusRunning,
		Progress: polls * 100 / d.cfg.StatusSteps,
	}
	if polls >= d.cfg.StatusSteps {
		st.Status = model.StatusCompleted
		st.Progress = 100
		st.FindingsCount = count
	} else {
		st.CurrentPhase = "probing"
		st.CurrentProbe = "endpoint enumeration"
	}
	writeJSON(w, http.StatusOK, st)
}

func (d *DemoScanner) handleFindings(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	d.mu.Lock()
	scan, ok := d.scans[scanID]
	if !ok {
		d.mu.Unlock()
		httpError(w, http.StatusNotFound, "scan not found")
		return
	}

	findings := []model.RawFinding{}
	if scan.polls >= d.cfg.StatusSteps {
		// Findings stay empty for the first FindingsDelay requests after
		// completion, reproducing the service's write lag.
		scan.findingsRequests++
		if scan.findingsRequests > d.cfg.FindingsDelay {
			findings = scan.findings
		}
	}
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"findings": findings,
		"total":    len(findings),
	})
}

func (d *DemoScanner) handleScanners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"available_scanners": []string{"ventiapi", "zap"},
		"descriptions": map[string]string{
			"ventiapi": "VentiAPI OpenAPI security scanner",
			"zap":      "OWASP ZAP API scan",
		},
	})
}

func (d *DemoScanner) handleListScans(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	entries := make([]model.ScanListEntry, 0, len(d.order))
	for i := len(d.order) - 1; i >= 0; i-- {
		scan := d.scans[d.order[i]]
		status := model.StatusRunning
		if scan.polls >= d.cfg.StatusSteps {
			status = model.StatusCompleted
		}
		entries = append(entries, model.ScanListEntry{
			ScanID:    scan.ID,
			TargetURL: scan.TargetURL,
			Status:    status,
			StartedAt: scan.StartedAt,
		})
	}
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"scans": entries})
}

// ─── helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
