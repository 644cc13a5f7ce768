// Package server exposes the scan pipeline over HTTP and WebSocket for the
// browser dashboard.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/KJWesthoff/ventiscan/docs" // swagger docs

	"github.com/KJWesthoff/ventiscan/internal/app"
	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/results"
)

// Server is the HTTP + WebSocket API surface for VentiScan.
type Server struct {
	cfg      Config
	manager  *app.Manager
	router   chi.Router
	upgrader websocket.Upgrader
	logger   interfaces.Logger
}

func NewServer(cfg Config, manager *app.Manager, logger interfaces.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		router:  chi.NewRouter(),
		logger:  logger.With(interfaces.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Post("/api/scans", s.handleStartScan)
	r.Get("/api/scans", s.handleListScans)
	r.Get("/api/scans/current", s.handleCurrentResults)
	r.Delete("/api/scans/current", s.handleClearResults)
	r.Post("/api/scans/{scanID}/select", s.handleSelectScan)
	r.Get("/api/scans/{scanID}/compare/{baseID}", s.handleCompareScans)
	r.Get("/api/scanners", s.handleListScanners)
	r.Get("/api/status", s.handleStatus)

	r.Get("/ws/scans/{scanID}/status", s.handleScanStatusWS)

	r.Get("/swagger/*", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []interfaces.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, interfaces.Field{Key: "query", Value: q})
	}

	ct := r.Header.Get("Content-Type")
	if r.Body != nil && r.Method == http.MethodPost && strings.HasPrefix(ct, "application/json") {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, interfaces.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// ─── JSON helpers ──────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// serviceStatus maps pipeline errors to HTTP status codes.
func serviceStatus(err error) int {
	switch {
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrScanNotFound):
		return http.StatusNotFound
	case model.IsAuthError(err), errors.Is(err, model.ErrServiceUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ─── HTTP handlers ─────────────────────────────────────────────────────

// handleStartScan launches a scan and arms the poller.
//
// @Summary Start a scan
// @Accept json
// @Accept mpfd
// @Produce json
// @Param request body StartScanRequest true "Scan configuration"
// @Success 202 {object} StartScanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/scans [post]
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.decodeScanConfig(r)
	if err != nil {
		s.logger.Warn("decoding scan config", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.manager.StartScan(r.Context(), cfg)
	if err != nil {
		s.logger.Warn("starting scan", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, serviceStatus(err), err.Error())
		return
	}

	s.logger.Info("started scan",
		interfaces.Field{Key: "scan_id", Value: job.ScanID},
		interfaces.Field{Key: "target", Value: job.TargetURL})
	writeJSON(w, http.StatusAccepted, StartScanResponse{
		ScanID:    job.ScanID,
		Status:    model.StatusRunning,
		TargetURL: job.TargetURL,
	})
}

// decodeScanConfig accepts either a JSON body or a multipart form carrying
// an uploaded spec document.
func (s *Server) decodeScanConfig(r *http.Request) (model.ScanConfig, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		return decodeScanForm(r)
	}

	var body StartScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return model.ScanConfig{}, errors.New("invalid JSON")
	}
	return model.ScanConfig{
		ServerURL:   body.ServerURL,
		SpecURL:     body.SpecURL,
		Scanners:    body.Scanners,
		Dangerous:   body.Dangerous,
		FuzzAuth:    body.FuzzAuth,
		RPS:         body.RPS,
		MaxRequests: body.MaxRequests,
	}, nil
}

func decodeScanForm(r *http.Request) (model.ScanConfig, error) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		return model.ScanConfig{}, errors.New("invalid multipart form")
	}

	cfg := model.ScanConfig{
		ServerURL: r.FormValue("server_url"),
		SpecURL:   r.FormValue("spec_url"),
		Dangerous: r.FormValue("dangerous") == "true",
		FuzzAuth:  r.FormValue("fuzz_auth") == "true",
	}
	if v := r.FormValue("scanners"); v != "" {
		for _, sc := range strings.Split(v, ",") {
			if sc = strings.TrimSpace(sc); sc != "" {
				cfg.Scanners = append(cfg.Scanners, sc)
			}
		}
	}
	if v, err := strconv.Atoi(r.FormValue("rps")); err == nil {
		cfg.RPS = v
	}
	if v, err := strconv.Atoi(r.FormValue("max_requests")); err == nil {
		cfg.MaxRequests = v
	}

	if file, header, err := r.FormFile("spec_file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return model.ScanConfig{}, errors.New("reading uploaded spec file")
		}
		cfg.SpecFile = data
		cfg.SpecFileName = header.Filename
	}
	return cfg, nil
}

// handleListScans lists prior scans, merging the service list with local
// history.
//
// @Summary List scans
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} model.ScanListEntry
// @Router /api/scans [get]
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	entries, err := s.manager.History(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing scans", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []model.ScanListEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCurrentResults returns the published result state, or 204 when
// nothing is held.
//
// @Summary Current scan results
// @Produce json
// @Success 200 {object} model.ScanResultsState
// @Success 204 "No results"
// @Router /api/scans/current [get]
func (s *Server) handleCurrentResults(w http.ResponseWriter, r *http.Request) {
	state := s.manager.Results()
	if state == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleClearResults cancels any active polling and empties the store.
//
// @Summary Clear results
// @Success 204 "Cleared"
// @Router /api/scans/current [delete]
func (s *Server) handleClearResults(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ClearResults(r.Context()); err != nil {
		s.logger.Warn("clearing results", interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectScan loads a historical scan's findings as the current
// result set.
//
// @Summary Select a historical scan
// @Produce json
// @Param scanID path string true "Scan ID"
// @Success 200 {object} model.ScanResultsState
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{scanID}/select [post]
func (s *Server) handleSelectScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	state, err := s.manager.SelectHistoricalScan(r.Context(), scanID)
	if err != nil {
		s.logger.Warn("selecting scan",
			interfaces.Field{Key: "scan_id", Value: scanID},
			interfaces.Field{Key: "error", Value: err.Error()})
		writeError(w, serviceStatus(err), err.Error())
		return
	}
	s.logger.Info("selected historical scan", interfaces.Field{Key: "scan_id", Value: scanID})
	writeJSON(w, http.StatusOK, state)
}

// handleCompareScans computes the finding drift from a base scan to a
// head scan.
//
// @Summary Compare two scans
// @Produce json
// @Param scanID path string true "Head scan ID"
// @Param baseID path string true "Base scan ID"
// @Success 200 {object} results.Drift
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{scanID}/compare/{baseID} [get]
func (s *Server) handleCompareScans(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	baseID := chi.URLParam(r, "baseID")

	head := s.manager.Results()
	if head == nil || head.ScanID != scanID || head.Status != model.StatusCompleted {
		var err error
		head, err = s.manager.Snapshot(r.Context(), scanID)
		if err != nil {
			writeError(w, serviceStatus(err), err.Error())
			return
		}
	}

	base, err := s.manager.Snapshot(r.Context(), baseID)
	if err != nil {
		writeError(w, serviceStatus(err), err.Error())
		return
	}

	drift := results.CompareStates(base, head)
	s.logger.Info("compared scans",
		interfaces.Field{Key: "base", Value: baseID},
		interfaces.Field{Key: "head", Value: scanID},
		interfaces.Field{Key: "added", Value: len(drift.Added)},
		interfaces.Field{Key: "resolved", Value: len(drift.Resolved)})
	writeJSON(w, http.StatusOK, drift)
}

// handleListScanners returns the scanner catalog.
//
// @Summary List available scanners
// @Produce json
// @Success 200 {array} model.ScannerInfo
// @Router /api/scanners [get]
func (s *Server) handleListScanners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Scanners(r.Context()))
}

// handleStatus reports pipeline state for clients without a WebSocket.
//
// @Summary Pipeline status
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Running:      s.manager.IsRunning(),
		HasResults:   s.manager.HasResults(),
		ActiveScanID: s.manager.ActiveScanID(),
	}
	if st := s.manager.CurrentStatus(); st != nil {
		resp.Progress = st.Progress
	}
	if err := s.manager.LastPollError(); err != nil {
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── WebSockets ────────────────────────────────────────────────────────

// handleScanStatusWS streams polling events for a scan launched in this
// process. The scan keeps running server-side when the client goes away;
// closing the socket never cancels the scan. job.Events is single-consumer:
// one socket per scan gets the live stream, any further connection for the
// same scan steals a share of it and both see gaps. Clients that only need
// the outcome poll /api/scan/results instead.
func (s *Server) handleScanStatusWS(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	job := s.manager.Job(scanID)
	if job == nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if st := s.manager.CurrentStatus(); st != nil && st.ScanID == scanID {
		_ = conn.WriteJSON(st)
	}

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	// Terminal state reached; hand the client the reconciled results.
	if state := s.manager.Results(); state != nil && state.ScanID == scanID {
		_ = conn.WriteJSON(state)
	}
}
