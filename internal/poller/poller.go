// Package poller implements the scan polling state machine: Idle → Polling
// → {Completed, Failed, Cancelled}. It owns its timers and goroutines
// outright, so consumers subscribe to it instead of re-arming it on every
// UI refresh, and its terminal transitions fire exactly once per scan id
// no matter how polls race or overlap.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
)

type EventType string

const (
	EventStatus    EventType = "status"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one observation pushed to the per-watch event channel. Status
// events are emitted on every poll, even when nothing changed, so progress
// displays stay live.
type Event struct {
	ScanID string    `json:"scan_id"`
	Type   EventType `json:"type"`

	Status   *model.ScanStatus  `json:"status,omitempty"`
	Findings []model.RawFinding `json:"-"`
	Error    string             `json:"error,omitempty"`
}

// Handlers receive the engine's observable transitions. OnCompleted and
// OnFailed are mutually exclusive and fire at most once per scan id.
type Handlers struct {
	OnStatus    func(scanID string, st *model.ScanStatus)
	OnCompleted func(scanID string, st *model.ScanStatus, findings []model.RawFinding)
	OnFailed    func(scanID string, message string)
}

type Config struct {
	// Interval between status polls. The first poll is immediate.
	Interval time.Duration

	// FindingsRetries bounds the reconciliation retry loop after a
	// completed status whose findings hint has not materialized yet.
	FindingsRetries int

	// Backoff computes the delay before retry attempt n (1-based).
	// Nil gets the default min(1500ms*n, 6s) ramp.
	Backoff func(attempt int) time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Interval <= 0 {
		out.Interval = 4 * time.Second
	}
	if out.FindingsRetries <= 0 {
		out.FindingsRetries = 5
	}
	if out.Backoff == nil {
		out.Backoff = func(attempt int) time.Duration {
			d := time.Duration(attempt) * 1500 * time.Millisecond
			if d > 6*time.Second {
				d = 6 * time.Second
			}
			return d
		}
	}
	return out
}

// Engine drives the polling loop for at most one scan at a time. Arming a
// new scan or calling Stop bumps an internal generation counter; every
// callback that crosses a suspension point re-checks the generation before
// touching shared state, which is what makes responses that resolve after
// cancellation harmless.
type Engine struct {
	cfg      Config
	svc      interfaces.ScannerService
	handlers Handlers
	logger   interfaces.Logger

	mu         sync.Mutex
	generation uint64
	activeID   string
	cancel     context.CancelFunc
	finished   map[string]bool
	lastErr    error
}

func NewEngine(cfg Config, svc interfaces.ScannerService, handlers Handlers, logger interfaces.Logger) *Engine {
	return &Engine{
		cfg:      cfg.withDefaults(),
		svc:      svc,
		handlers: handlers,
		logger:   logger.With(interfaces.Field{Key: "component", Value: "poller"}),
		finished: make(map[string]bool),
	}
}

// Watch enters the Polling state for scanID, replacing any previous watch.
// The returned channel carries events until the watch reaches a terminal
// state or is stopped, then closes. Sends are non-blocking; a slow
// consumer loses events, never stalls the loop.
func (e *Engine) Watch(ctx context.Context, scanID string) (<-chan Event, error) {
	if scanID == "" {
		return nil, errors.New("poller: empty scan id")
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	watchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.activeID = scanID
	e.mu.Unlock()

	events := make(chan Event, 16)
	go e.run(watchCtx, gen, scanID, events)

	e.logger.Info("polling started", interfaces.Field{Key: "scan_id", Value: scanID})
	return events, nil
}

// Stop returns the engine to Idle. The timer is cancelled synchronously;
// responses already in flight are suppressed by the generation check.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	stopped := e.activeID
	e.activeID = ""
	e.mu.Unlock()

	if stopped != "" {
		e.logger.Info("polling stopped", interfaces.Field{Key: "scan_id", Value: stopped})
	}
}

// Active returns the scan id currently being polled, or "".
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID
}

// LastError returns the most recent transient poll error. Purely
// informational; transient errors never stop the loop.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) stillCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

func (e *Engine) setLastErr(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

func (e *Engine) emit(events chan<- Event, ev Event) {
	select {
	case events <- ev:
	default:
	}
}

func (e *Engine) run(ctx context.Context, gen uint64, scanID string, events chan Event) {
	defer close(events)

	// Immediate first probe, then the fixed cadence.
	if done := e.poll(ctx, gen, scanID, events); done {
		return
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := e.poll(ctx, gen, scanID, events); done {
				return
			}
		}
	}
}

// poll performs one status query and, on a terminal status, the one-shot
// terminal transition. It returns true when the watch should end.
func (e *Engine) poll(ctx context.Context, gen uint64, scanID string, events chan Event) bool {
	st, err := e.svc.GetStatus(ctx, scanID)

	// The scan id or enabled state may have changed while the request was
	// in flight; a stale response must not mutate anything.
	if !e.stillCurrent(gen) {
		return true
	}

	if err != nil {
		if errors.Is(err, model.ErrScanNotFound) {
			e.failOnce(gen, scanID, "scan not found", events)
			return true
		}
		// Transient: report softly and keep the cadence going. Polling
		// only stops on a terminal status or explicit cancellation.
		e.setLastErr(err)
		e.logger.Warn("status poll failed",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "error", Value: err.Error()})
		return false
	}

	if e.handlers.OnStatus != nil {
		e.handlers.OnStatus(scanID, st)
	}
	e.emit(events, Event{ScanID: scanID, Type: EventStatus, Status: st})

	if !st.Terminal() {
		return false
	}

	// Exactly-once terminal guard. Interval cancellation alone is not
	// enough: a fetch in flight can still resolve after the timer is
	// cleared, and remounted watchers re-poll a finished scan.
	e.mu.Lock()
	if e.finished[scanID] {
		e.mu.Unlock()
		return true
	}
	e.finished[scanID] = true
	e.mu.Unlock()

	if st.Status == model.StatusFailed {
		msg := st.Error
		if msg == "" {
			msg = "scan failed"
		}
		if e.handlers.OnFailed != nil {
			e.handlers.OnFailed(scanID, msg)
		}
		e.emit(events, Event{ScanID: scanID, Type: EventFailed, Error: msg})
		return true
	}

	findings, err := e.reconcile(ctx, gen, scanID, st.FindingsCount)
	if !e.stillCurrent(gen) {
		return true
	}
	if err != nil {
		msg := fmt.Sprintf("scan completed but findings could not be loaded: %v", err)
		if e.handlers.OnFailed != nil {
			e.handlers.OnFailed(scanID, msg)
		}
		e.emit(events, Event{ScanID: scanID, Type: EventFailed, Error: msg})
		return true
	}

	if e.handlers.OnCompleted != nil {
		e.handlers.OnCompleted(scanID, st, findings)
	}
	e.emit(events, Event{ScanID: scanID, Type: EventCompleted, Status: st, Findings: findings})
	e.logger.Info("scan reconciled",
		interfaces.Field{Key: "scan_id", Value: scanID},
		interfaces.Field{Key: "findings", Value: len(findings)})
	return true
}

// reconcile fetches findings after a completed status. The service may
// report completion before findings are durably written, so when the
// status hinted at findings and none come back yet, the fetch retries on
// an increasing backoff, accepting whatever the final attempt returns. A
// zero hint is a valid true result and gets exactly one fetch.
//
// This runs inline in the single watch goroutine, so at most one
// reconciliation is in flight per scan id.
func (e *Engine) reconcile(ctx context.Context, gen uint64, scanID string, hint int) ([]model.RawFinding, error) {
	attempt := 0
	for {
		findings, err := e.svc.GetFindings(ctx, scanID)
		if !e.stillCurrent(gen) {
			return nil, context.Canceled
		}
		if hint <= 0 {
			return findings, err
		}
		if err == nil && len(findings) > 0 {
			return findings, nil
		}

		attempt++
		if attempt > e.cfg.FindingsRetries {
			return findings, err
		}

		e.logger.Debug("findings not ready, retrying",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "attempt", Value: attempt},
			interfaces.Field{Key: "hint", Value: hint})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.Backoff(attempt)):
		}
	}
}

// failOnce delivers a terminal failure through the exactly-once guard.
func (e *Engine) failOnce(gen uint64, scanID, msg string, events chan<- Event) {
	e.mu.Lock()
	if e.finished[scanID] {
		e.mu.Unlock()
		return
	}
	e.finished[scanID] = true
	e.mu.Unlock()

	if e.handlers.OnFailed != nil {
		e.handlers.OnFailed(scanID, msg)
	}
	e.emit(events, Event{ScanID: scanID, Type: EventFailed, Error: msg})
}
