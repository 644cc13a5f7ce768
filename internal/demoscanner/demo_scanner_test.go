package demoscanner_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KJWesthoff/ventiscan/internal/demoscanner"
	"github.com/KJWesthoff/ventiscan/internal/model"
)

func newService(t *testing.T) http.Handler {
	t.Helper()
	cfg := demoscanner.DefaultConfig()
	cfg.StatusSteps = 2
	cfg.FindingsDelay = 1
	return demoscanner.NewDemoScanner(cfg).Router()
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	body := `{"username":"demo","password":"demo"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.AccessToken
}

func authedGet(t *testing.T, h http.Handler, token, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func startScan(t *testing.T, h http.Handler, token string) string {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("server_url", "https://target.example.com")
	_ = w.WriteField("scanners", "ventiapi,zap")
	_ = w.WriteField("target_url", "https://target.example.com/openapi.json")
	_ = w.Close()

	req := httptest.NewRequest("POST", "/api/scan/start", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res model.StartScanResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding start response: %v", err)
	}
	if res.ScanID == "" {
		t.Fatal("empty scan id")
	}
	return res.ScanID
}

// ─── Auth ──────────────────────────────────────────────────────────────

func TestDemoScanner_LoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	h := newService(t)

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"username":"demo","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDemoScanner_RequiresBearerToken(t *testing.T) {
	t.Parallel()
	h := newService(t)

	rec := authedGet(t, h, "", "/api/scanners")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}

	rec = authedGet(t, h, "garbage-token", "/api/scanners")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", rec.Code)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

func TestDemoScanner_ScanLifecycle(t *testing.T) {
	t.Parallel()
	h := newService(t)
	token := login(t, h)
	scanID := startScan(t, h, token)

	// First poll: still running.
	var st model.ScanStatus
	rec := authedGet(t, h, token, "/api/scan/"+scanID+"/status")
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.Status != model.StatusRunning {
		t.Fatalf("first poll status = %q", st.Status)
	}

	// Second poll: completed (StatusSteps = 2).
	rec = authedGet(t, h, token, "/api/scan/"+scanID+"/status")
	st = model.ScanStatus{}
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if st.Status != model.StatusCompleted || st.Progress != 100 {
		t.Fatalf("second poll = %+v", st)
	}
	if st.FindingsCount == 0 {
		t.Error("completed status carries no findings hint")
	}

	// First findings fetch after completion is empty (FindingsDelay = 1).
	var out struct {
		Findings []model.RawFinding `json:"findings"`
		Total    int                `json:"total"`
	}
	rec = authedGet(t, h, token, "/api/scan/"+scanID+"/findings")
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out.Total != 0 {
		t.Fatalf("first findings fetch total = %d, want 0", out.Total)
	}

	// Second fetch serves the real set.
	rec = authedGet(t, h, token, "/api/scan/"+scanID+"/findings")
	out.Findings = nil
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out.Total == 0 || len(out.Findings) != out.Total {
		t.Fatalf("second findings fetch = %+v", out)
	}
}

func TestDemoScanner_FindingsBeforeCompletionAreEmpty(t *testing.T) {
	t.Parallel()
	h := newService(t)
	token := login(t, h)
	scanID := startScan(t, h, token)

	var out struct {
		Total int `json:"total"`
	}
	rec := authedGet(t, h, token, "/api/scan/"+scanID+"/findings")
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out.Total != 0 {
		t.Errorf("running scan served %d findings", out.Total)
	}
}

func TestDemoScanner_UnknownScanIs404(t *testing.T) {
	t.Parallel()
	h := newService(t)
	token := login(t, h)

	rec := authedGet(t, h, token, "/api/scan/nope/status")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDemoScanner_StartValidation(t *testing.T) {
	t.Parallel()
	h := newService(t)
	token := login(t, h)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("scanners", "ventiapi")
	_ = w.Close()

	req := httptest.NewRequest("POST", "/api/scan/start", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDemoScanner_ListScansNewestFirst(t *testing.T) {
	t.Parallel()
	h := newService(t)
	token := login(t, h)

	first := startScan(t, h, token)
	second := startScan(t, h, token)

	var out struct {
		Scans []model.ScanListEntry `json:"scans"`
	}
	rec := authedGet(t, h, token, "/api/scans")
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding scans: %v", err)
	}
	if len(out.Scans) != 2 {
		t.Fatalf("got %d scans", len(out.Scans))
	}
	if out.Scans[0].ScanID != second || out.Scans[1].ScanID != first {
		t.Errorf("order = %s, %s", out.Scans[0].ScanID, out.Scans[1].ScanID)
	}
}
