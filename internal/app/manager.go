// Package app wires the scanner client, polling engine, transformer and
// results store into the single facade the API surface talks to.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/poller"
	"github.com/KJWesthoff/ventiscan/internal/results"
	"github.com/KJWesthoff/ventiscan/internal/scanner"
	"github.com/KJWesthoff/ventiscan/internal/transform"
)

// ScanJob is one scan launched through this manager. Events carries the
// polling engine's stream for the job and closes when the job reaches a
// terminal state. It is a single-consumer channel: concurrent readers
// would split the stream between them, so exactly one WebSocket
// connection may drain it. Late or additional clients read the reconciled
// state from the store instead.
type ScanJob struct {
	ScanID    string              `json:"scan_id"`
	TargetURL string              `json:"target_url"`
	StartedAt time.Time           `json:"started_at"`
	Events    <-chan poller.Event `json:"-"`
}

// Manager composes the pipeline. All mutation of the shared result state
// funnels through the engine's exactly-once terminal handlers and the
// store, never from two call sites for the same scan id.
type Manager struct {
	svc    interfaces.ScannerService
	store  *results.Store
	engine *poller.Engine
	logger interfaces.Logger

	mu            sync.Mutex
	jobs          map[string]*ScanJob
	currentStatus *model.ScanStatus
}

func NewManager(svc interfaces.ScannerService, store *results.Store, pollCfg poller.Config, logger interfaces.Logger) *Manager {
	m := &Manager{
		svc:    svc,
		store:  store,
		logger: logger.With(interfaces.Field{Key: "component", Value: "scan_manager"}),
		jobs:   make(map[string]*ScanJob),
	}
	m.engine = poller.NewEngine(pollCfg, svc, poller.Handlers{
		OnStatus:    m.onStatus,
		OnCompleted: m.onCompleted,
		OnFailed:    m.onFailed,
	}, logger)
	return m
}

// StartScan launches a scan, publishes the running placeholder state and
// arms the polling engine. On launch failure the store is left untouched.
func (m *Manager) StartScan(ctx context.Context, cfg model.ScanConfig) (*ScanJob, error) {
	res, err := m.svc.StartScan(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The previous watch is superseded before the placeholder is published;
	// a terminal handler for the old scan that resolves in this window is
	// suppressed by the engine's generation check.
	m.engine.Stop()

	now := time.Now().UTC()
	target := cfg.ServerURL

	placeholder := &model.ScanResultsState{
		ScanID:    res.ScanID,
		TargetURL: target,
		Status:    model.StatusRunning,
		ScanDate:  now,
		Findings:  []model.Finding{},
	}
	if err := m.store.Publish(ctx, placeholder); err != nil {
		m.logger.Warn("publishing placeholder state",
			interfaces.Field{Key: "scan_id", Value: res.ScanID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
	if err := m.store.RecordScan(ctx, res.ScanID, target, model.StatusRunning, now); err != nil {
		m.logger.Warn("recording scan history",
			interfaces.Field{Key: "scan_id", Value: res.ScanID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}

	// The watch outlives the HTTP request that started it; its lifetime
	// belongs to the engine, ended by Stop or a terminal status.
	events, err := m.engine.Watch(context.Background(), res.ScanID)
	if err != nil {
		return nil, err
	}

	job := &ScanJob{
		ScanID:    res.ScanID,
		TargetURL: target,
		StartedAt: now,
		Events:    events,
	}
	m.mu.Lock()
	m.jobs[res.ScanID] = job
	m.currentStatus = &model.ScanStatus{ScanID: res.ScanID, Status: res.Status}
	m.mu.Unlock()

	return job, nil
}

// Snapshot builds the reconciled state for a completed scan by fetching
// its findings directly. The store is not touched.
func (m *Manager) Snapshot(ctx context.Context, scanID string) (*model.ScanResultsState, error) {
	raws, err := m.svc.GetFindings(ctx, scanID)
	if err != nil {
		return nil, err
	}

	target, started := m.scanMeta(ctx, scanID)
	findings := transform.FindingSet(scanID, started, raws)
	return &model.ScanResultsState{
		ScanID:    scanID,
		TargetURL: target,
		Status:    model.StatusCompleted,
		ScanDate:  started,
		Findings:  findings,
		Summary:   transform.Summarize(findings),
	}, nil
}

// SelectHistoricalScan loads an already-completed scan directly, bypassing
// the polling engine, and publishes the reconciled state.
func (m *Manager) SelectHistoricalScan(ctx context.Context, scanID string) (*model.ScanResultsState, error) {
	m.engine.Stop()

	state, err := m.Snapshot(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if err := m.store.Publish(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ClearResults cancels any active polling and empties the store.
func (m *Manager) ClearResults(ctx context.Context) error {
	m.engine.Stop()
	m.mu.Lock()
	m.currentStatus = nil
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

// IsRunning reports whether a scan is being polled right now.
func (m *Manager) IsRunning() bool {
	return m.engine.Active() != ""
}

// ActiveScanID returns the scan id being polled, or "".
func (m *Manager) ActiveScanID() string {
	return m.engine.Active()
}

// LastPollError returns the most recent transient poll error, or nil.
func (m *Manager) LastPollError() error {
	return m.engine.LastError()
}

// HasResults reports whether a reconciled state is held.
func (m *Manager) HasResults() bool {
	return m.store.Current() != nil
}

// Results returns the current reconciled state, or nil.
func (m *Manager) Results() *model.ScanResultsState {
	return m.store.Current()
}

// CurrentStatus returns the latest status snapshot while polling, or nil.
func (m *Manager) CurrentStatus() *model.ScanStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentStatus
}

// Job returns the launched job for scanID, or nil.
func (m *Manager) Job(scanID string) *ScanJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[scanID]
}

// Scanners returns the service catalog, falling back to the built-in
// defaults so scan configuration never blocks on the listing call.
func (m *Manager) Scanners(ctx context.Context) []model.ScannerInfo {
	infos, err := m.svc.ListScanners(ctx)
	if err != nil || len(infos) == 0 {
		if err != nil {
			m.logger.Warn("scanner catalog unavailable, using defaults",
				interfaces.Field{Key: "error", Value: err.Error()})
		}
		return scanner.DefaultScanners()
	}
	return infos
}

// History merges the service's scan list with the locally recorded one.
// Service entries win on conflict; local entries cover scans the service
// has already expired.
func (m *Manager) History(ctx context.Context, limit int) ([]model.ScanListEntry, error) {
	local, err := m.store.History(ctx, limit)
	if err != nil {
		return nil, err
	}

	remote, err := m.svc.ListScans(ctx)
	if err != nil {
		m.logger.Warn("service scan list unavailable, using local history",
			interfaces.Field{Key: "error", Value: err.Error()})
		return local, nil
	}

	seen := make(map[string]bool, len(remote))
	merged := make([]model.ScanListEntry, 0, len(remote)+len(local))
	for _, e := range remote {
		seen[e.ScanID] = true
		merged = append(merged, e)
	}
	for _, e := range local {
		if !seen[e.ScanID] {
			merged = append(merged, e)
		}
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Shutdown stops polling. The store is closed by its owner.
func (m *Manager) Shutdown() {
	m.engine.Stop()
}

// ─── engine handlers ───────────────────────────────────────────────────

func (m *Manager) onStatus(scanID string, st *model.ScanStatus) {
	m.mu.Lock()
	m.currentStatus = st
	m.mu.Unlock()
}

func (m *Manager) onCompleted(scanID string, st *model.ScanStatus, raws []model.RawFinding) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target, started := m.jobMeta(scanID)
	findings := transform.FindingSet(scanID, started, raws)
	state := &model.ScanResultsState{
		ScanID:    scanID,
		TargetURL: target,
		Status:    model.StatusCompleted,
		ScanDate:  started,
		Findings:  findings,
		Summary:   transform.Summarize(findings),
	}
	if err := m.store.Publish(ctx, state); err != nil {
		m.logger.Error("publishing reconciled results",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	if err := m.store.UpdateScanStatus(ctx, scanID, model.StatusCompleted); err != nil {
		m.logger.Warn("updating scan history",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}

func (m *Manager) onFailed(scanID string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target, started := m.jobMeta(scanID)
	state := &model.ScanResultsState{
		ScanID:    scanID,
		TargetURL: target,
		Status:    model.StatusFailed,
		ScanDate:  started,
		Findings:  []model.Finding{},
		Error:     message,
	}
	if err := m.store.Publish(ctx, state); err != nil {
		m.logger.Error("publishing failure state",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	if err := m.store.UpdateScanStatus(ctx, scanID, model.StatusFailed); err != nil {
		m.logger.Warn("updating scan history",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}

// jobMeta resolves launch metadata for a scan started in this process.
func (m *Manager) jobMeta(scanID string) (targetURL string, startedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[scanID]; ok {
		return job.TargetURL, job.StartedAt
	}
	return "", time.Now().UTC()
}

// scanMeta resolves metadata for historical scans, preferring the local
// history index and falling back to the service list.
func (m *Manager) scanMeta(ctx context.Context, scanID string) (targetURL string, startedAt time.Time) {
	if target, started := m.jobMeta(scanID); target != "" {
		return target, started
	}
	if local, err := m.store.History(ctx, 0); err == nil {
		for _, e := range local {
			if e.ScanID == scanID {
				return e.TargetURL, e.StartedAt
			}
		}
	}
	if remote, err := m.svc.ListScans(ctx); err == nil {
		for _, e := range remote {
			if e.ScanID == scanID {
				return e.TargetURL, e.StartedAt
			}
		}
	}
	return "", time.Now().UTC()
}
