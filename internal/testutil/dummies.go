// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements interfaces.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...interfaces.Field) interfaces.Logger { return l }

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient. Responses come from the
// Handler func when set; otherwise every request gets status 200 with an
// empty JSON object. Set FailURLs[url] = true to force a transport error.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Handler       func(req *webclient.Request) (*webclient.Response, error)

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}
	if d.Handler != nil {
		return d.Handler(req)
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte("{}"),
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns how many requests were issued.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── ScannerService ────────────────────────────────────────────────────

// FakeScannerService implements interfaces.ScannerService with scripted
// behavior. Status calls consume StatusScript in order, repeating the last
// entry once exhausted. Findings calls consume FindingsScript the same way.
type FakeScannerService struct {
	mu sync.Mutex

	StartResult *model.StartScanResult
	StartErr    error

	StatusScript []StatusStep
	statusCalls  int

	FindingsScript []FindingsStep
	findingsCalls  int

	Scanners    []model.ScannerInfo
	ScannersErr error

	Scans    []model.ScanListEntry
	ScansErr error
}

// StatusStep is one scripted GetStatus response.
type StatusStep struct {
	Status *model.ScanStatus
	Err    error
}

// FindingsStep is one scripted GetFindings response.
type FindingsStep struct {
	Findings []model.RawFinding
	Err      error
}

func (f *FakeScannerService) StartScan(_ context.Context, _ model.ScanConfig) (*model.StartScanResult, error) {
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.StartResult != nil {
		return f.StartResult, nil
	}
	return &model.StartScanResult{ScanID: "scan-1", Status: model.StatusRunning}, nil
}

func (f *FakeScannerService) GetStatus(_ context.Context, scanID string) (*model.ScanStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.StatusScript) == 0 {
		return &model.ScanStatus{ScanID: scanID, Status: model.StatusRunning}, nil
	}
	i := f.statusCalls
	if i >= len(f.StatusScript) {
		i = len(f.StatusScript) - 1
	}
	f.statusCalls++
	step := f.StatusScript[i]
	if step.Err != nil {
		return nil, step.Err
	}
	st := *step.Status
	st.ScanID = scanID
	return &st, nil
}

func (f *FakeScannerService) GetFindings(_ context.Context, _ string) ([]model.RawFinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.FindingsScript) == 0 {
		return nil, nil
	}
	i := f.findingsCalls
	if i >= len(f.FindingsScript) {
		i = len(f.FindingsScript) - 1
	}
	f.findingsCalls++
	step := f.FindingsScript[i]
	return step.Findings, step.Err
}

func (f *FakeScannerService) ListScanners(_ context.Context) ([]model.ScannerInfo, error) {
	if f.ScannersErr != nil {
		return nil, f.ScannersErr
	}
	return f.Scanners, nil
}

func (f *FakeScannerService) ListScans(_ context.Context) ([]model.ScanListEntry, error) {
	if f.ScansErr != nil {
		return nil, f.ScansErr
	}
	return f.Scans, nil
}

// StatusCalls returns how many GetStatus calls were made.
func (f *FakeScannerService) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// FindingsCalls returns how many GetFindings calls were made.
func (f *FakeScannerService) FindingsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findingsCalls
}

// ─── TokenStore ────────────────────────────────────────────────────────

// MemTokenStore is an in-memory scanner.TokenStore.
type MemTokenStore struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	has    bool

	Saves  int
	Clears int
}

func (m *MemTokenStore) Load() (string, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.expiry, m.has
}

func (m *MemTokenStore) Save(token string, expiry time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.expiry, m.has = token, expiry, true
	m.Saves++
}

func (m *MemTokenStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.expiry, m.has = "", time.Time{}, false
	m.Clears++
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
