// Package agent pushes reconciled scan results to the chat agent's context
// endpoint. The push is one-way and fire-and-forget: the agent gets fresh
// conversational context when results land, and nothing here can fail the
// scan pipeline.
package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/results"
	"github.com/KJWesthoff/ventiscan/internal/webclient"
)

// ContextProjection is the read-only slice of ScanResultsState the agent
// receives. It never includes store internals or mutation handles.
type ContextProjection struct {
	ScanID    string          `json:"scan_id"`
	TargetURL string          `json:"target_url"`
	ScanDate  time.Time       `json:"scan_date"`
	Summary   model.Summary   `json:"summary"`
	Findings  []model.Finding `json:"findings"`
}

type Bridge struct {
	wc      webclient.WebClient
	url     string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewBridge builds a bridge posting to url. An empty url disables the
// bridge; Subscriber then returns a no-op.
func NewBridge(wc webclient.WebClient, url string, logger interfaces.Logger) *Bridge {
	return &Bridge{
		wc:      wc,
		url:     url,
		timeout: 5 * time.Second,
		logger:  logger.With(interfaces.Field{Key: "component", Value: "agent_bridge"}),
	}
}

// Subscriber adapts the bridge to the results store. Only completed
// reconciliations are projected; running placeholders and clears carry no
// conversational value.
func (b *Bridge) Subscriber() results.Subscriber {
	if b.url == "" {
		return func(*model.ScanResultsState) {}
	}
	return func(state *model.ScanResultsState) {
		if state == nil || state.Status != model.StatusCompleted {
			return
		}
		proj := ContextProjection{
			ScanID:    state.ScanID,
			TargetURL: state.TargetURL,
			ScanDate:  state.ScanDate,
			Summary:   state.Summary,
			Findings:  state.Findings,
		}
		go b.push(proj)
	}
}

func (b *Bridge) push(proj ContextProjection) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	body, err := json.Marshal(proj)
	if err != nil {
		b.logger.Warn("encode context projection",
			interfaces.Field{Key: "error", Value: err.Error()})
		return
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	resp, err := b.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     b.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		b.logger.Warn("agent context push failed",
			interfaces.Field{Key: "scan_id", Value: proj.ScanID},
			interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	if resp.StatusCode >= 300 {
		b.logger.Warn("agent context push rejected",
			interfaces.Field{Key: "scan_id", Value: proj.ScanID},
			interfaces.Field{Key: "status_code", Value: resp.StatusCode})
		return
	}
	b.logger.Debug("agent context updated",
		interfaces.Field{Key: "scan_id", Value: proj.ScanID},
		interfaces.Field{Key: "findings", Value: len(proj.Findings)})
}
