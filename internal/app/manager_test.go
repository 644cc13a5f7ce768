package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/app"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/poller"
	"github.com/KJWesthoff/ventiscan/internal/results"
	"github.com/KJWesthoff/ventiscan/internal/testutil"
)

func newTestManager(t *testing.T, svc *testutil.FakeScannerService) (*app.Manager, *results.Store) {
	t.Helper()

	db, err := results.OpenDatabase(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := results.NewStore(db, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	m := app.NewManager(svc, store, poller.Config{
		Interval:        5 * time.Millisecond,
		FindingsRetries: 3,
		Backoff:         func(int) time.Duration { return time.Millisecond },
	}, &testutil.DummyLogger{})
	t.Cleanup(m.Shutdown)
	return m, store
}

func validScanConfig() model.ScanConfig {
	return model.ScanConfig{
		ServerURL: "https://target.example.com",
		SpecURL:   "https://target.example.com/openapi.json",
		Scanners:  []string{"ventiapi"},
	}
}

// awaitTerminal consumes the job's event stream until it closes.
func awaitTerminal(t *testing.T, job *app.ScanJob) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-job.Events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for scan to finish")
		}
	}
}

// ─── StartScan ─────────────────────────────────────────────────────────

func TestManager_StartScan_PublishesPlaceholderThenCompletes(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{
		StartResult: &model.StartScanResult{ScanID: "scan-1", Status: model.StatusRunning},
		StatusScript: []testutil.StatusStep{
			{Status: &model.ScanStatus{Status: model.StatusRunning, Progress: 50}},
			{Status: &model.ScanStatus{Status: model.StatusCompleted, Progress: 100, FindingsCount: 2}},
		},
		FindingsScript: []testutil.FindingsStep{
			{Findings: []model.RawFinding{
				{Rule: "bola", Severity: "Critical", Method: "GET", Endpoint: "/api/users/{id}", Scanner: "ventiapi"},
				{Rule: "cors-wildcard", Severity: "Low", Method: "GET", Endpoint: "/health", Scanner: "zap"},
			}},
		},
	}
	m, store := newTestManager(t, svc)

	job, err := m.StartScan(context.Background(), validScanConfig())
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if job.ScanID != "scan-1" {
		t.Errorf("ScanID = %q", job.ScanID)
	}
	if !m.IsRunning() {
		t.Error("manager not running after StartScan")
	}

	// Placeholder is visible immediately.
	if st := store.Current(); st == nil || st.Status != model.StatusRunning {
		t.Errorf("placeholder state = %+v", st)
	}

	awaitTerminal(t, job)

	state := store.Current()
	if state == nil || state.Status != model.StatusCompleted {
		t.Fatalf("final state = %+v", state)
	}
	if len(state.Findings) != 2 || state.Summary.Total != 2 || state.Summary.Critical != 1 {
		t.Errorf("findings=%d summary=%+v", len(state.Findings), state.Summary)
	}
	if state.TargetURL != "https://target.example.com" {
		t.Errorf("TargetURL = %q", state.TargetURL)
	}

	entries, err := store.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != model.StatusCompleted {
		t.Errorf("history = %+v", entries)
	}
}

func TestManager_StartScan_LaunchFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{
		StartErr: &model.ServiceError{StatusCode: 503, Message: "maintenance"},
	}
	m, store := newTestManager(t, svc)

	if _, err := m.StartScan(context.Background(), validScanConfig()); err == nil {
		t.Fatal("expected error")
	}

	if store.Current() != nil {
		t.Error("failed launch published a state")
	}
	entries, _ := store.History(context.Background(), 0)
	if len(entries) != 0 {
		t.Errorf("failed launch recorded history: %+v", entries)
	}
	if m.IsRunning() {
		t.Error("manager claims to be running")
	}
}

func TestManager_StartScan_SupersedesPreviousWatchBeforePublish(t *testing.T) {
	t.Parallel()

	// Never terminal, so the first watch is still live when the second
	// scan launches.
	svc := &testutil.FakeScannerService{
		StartResult:  &model.StartScanResult{ScanID: "scan-1", Status: model.StatusRunning},
		StatusScript: []testutil.StatusStep{{Status: &model.ScanStatus{Status: model.StatusRunning, Progress: 10}}},
	}
	m, store := newTestManager(t, svc)

	first, err := m.StartScan(context.Background(), validScanConfig())
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	// Subscribers run synchronously inside Publish, so this observes which
	// watch is armed at the moment the second placeholder goes out.
	var mu sync.Mutex
	activeAtPublish := "unset"
	store.Subscribe(func(state *model.ScanResultsState) {
		if state != nil && state.ScanID == "scan-2" && state.Status == model.StatusRunning {
			mu.Lock()
			activeAtPublish = m.ActiveScanID()
			mu.Unlock()
		}
	})

	svc.StartResult = &model.StartScanResult{ScanID: "scan-2", Status: model.StatusRunning}
	if _, err := m.StartScan(context.Background(), validScanConfig()); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	mu.Lock()
	got := activeAtPublish
	mu.Unlock()
	if got != "" {
		t.Errorf("watch %q still armed when the new placeholder was published", got)
	}
	if m.ActiveScanID() != "scan-2" {
		t.Errorf("ActiveScanID = %q, want scan-2", m.ActiveScanID())
	}

	// The superseded watch winds down on its own.
	awaitTerminal(t, first)
}

func TestManager_FailedScanPublishesFailureState(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{
		StartResult: &model.StartScanResult{ScanID: "scan-1", Status: model.StatusRunning},
		StatusScript: []testutil.StatusStep{
			{Status: &model.ScanStatus{Status: model.StatusFailed, Error: "target refused all probes"}},
		},
	}
	m, store := newTestManager(t, svc)

	job, err := m.StartScan(context.Background(), validScanConfig())
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	awaitTerminal(t, job)

	state := store.Current()
	if state == nil || state.Status != model.StatusFailed {
		t.Fatalf("state = %+v", state)
	}
	if state.Error != "target refused all probes" {
		t.Errorf("Error = %q", state.Error)
	}
	if len(state.Findings) != 0 {
		t.Errorf("failed state carries %d findings", len(state.Findings))
	}
}

// ─── Historical selection ──────────────────────────────────────────────

func TestManager_SelectHistoricalScan(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	svc := &testutil.FakeScannerService{
		FindingsScript: []testutil.FindingsStep{
			{Findings: []model.RawFinding{
				{Rule: "sqli", Severity: "High", Method: "POST", Endpoint: "/api/search", Scanner: "ventiapi"},
			}},
		},
		Scans: []model.ScanListEntry{
			{ScanID: "scan-old", TargetURL: "https://old.example.com", Status: model.StatusCompleted, StartedAt: started},
		},
	}
	m, store := newTestManager(t, svc)

	state, err := m.SelectHistoricalScan(context.Background(), "scan-old")
	if err != nil {
		t.Fatalf("SelectHistoricalScan: %v", err)
	}
	if state.Status != model.StatusCompleted || len(state.Findings) != 1 {
		t.Errorf("state = %+v", state)
	}
	if state.TargetURL != "https://old.example.com" {
		t.Errorf("TargetURL = %q", state.TargetURL)
	}
	if !state.ScanDate.Equal(started) {
		t.Errorf("ScanDate = %v", state.ScanDate)
	}
	if got := store.Current(); got == nil || got.ScanID != "scan-old" {
		t.Errorf("store state = %+v", got)
	}
	// No polling for historical loads.
	if svc.StatusCalls() != 0 {
		t.Errorf("historical selection polled status %d times", svc.StatusCalls())
	}
}

func TestManager_SelectHistoricalScan_FetchFailureKeepsStore(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{
		FindingsScript: []testutil.FindingsStep{{Err: errors.New("boom")}},
	}
	m, store := newTestManager(t, svc)

	if _, err := m.SelectHistoricalScan(context.Background(), "scan-x"); err == nil {
		t.Fatal("expected error")
	}
	if store.Current() != nil {
		t.Error("failed selection mutated the store")
	}
}

// ─── Clear ─────────────────────────────────────────────────────────────

func TestManager_ClearResults(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{
		FindingsScript: []testutil.FindingsStep{
			{Findings: []model.RawFinding{{Rule: "bola", Severity: "High", Method: "GET", Endpoint: "/x", Scanner: "v"}}},
		},
	}
	m, store := newTestManager(t, svc)

	if _, err := m.SelectHistoricalScan(context.Background(), "scan-1"); err != nil {
		t.Fatalf("SelectHistoricalScan: %v", err)
	}
	if !m.HasResults() {
		t.Fatal("expected results")
	}

	if err := m.ClearResults(context.Background()); err != nil {
		t.Fatalf("ClearResults: %v", err)
	}
	if m.HasResults() || store.Current() != nil {
		t.Error("results survived ClearResults")
	}
	if m.IsRunning() {
		t.Error("polling survived ClearResults")
	}
}

// ─── Catalog and history ───────────────────────────────────────────────

func TestManager_ScannersFallsBackOnError(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{ScannersErr: errors.New("listing broken")}
	m, _ := newTestManager(t, svc)

	infos := m.Scanners(context.Background())
	if len(infos) == 0 {
		t.Fatal("no fallback scanners")
	}
}

func TestManager_HistoryMergesServiceAndLocal(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{
		Scans: []model.ScanListEntry{
			{ScanID: "remote-1", TargetURL: "https://a", Status: model.StatusCompleted, StartedAt: time.Now().UTC()},
		},
	}
	m, store := newTestManager(t, svc)

	_ = store.RecordScan(context.Background(), "local-1", "https://b", model.StatusCompleted, time.Now().UTC())
	_ = store.RecordScan(context.Background(), "remote-1", "https://a", model.StatusRunning, time.Now().UTC())

	entries, err := m.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries: %+v", len(entries), entries)
	}
	// The service's view of remote-1 wins over the stale local row.
	for _, e := range entries {
		if e.ScanID == "remote-1" && e.Status != model.StatusCompleted {
			t.Errorf("remote-1 status = %q", e.Status)
		}
	}
}

func TestManager_HistoryFallsBackToLocalWhenServiceDown(t *testing.T) {
	t.Parallel()

	svc := &testutil.FakeScannerService{ScansErr: errors.New("unreachable")}
	m, store := newTestManager(t, svc)

	_ = store.RecordScan(context.Background(), "local-1", "https://b", model.StatusCompleted, time.Now().UTC())

	entries, err := m.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].ScanID != "local-1" {
		t.Errorf("entries = %+v", entries)
	}
}
