package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/webclient"
)

// Service defaults applied when the launch config leaves them zero.
const (
	defaultRPS         = 10
	defaultMaxRequests = 1000
)

// Client is the typed HTTP client for the external scanner service. Every
// call attaches a bearer token from the AuthSession; on a 401 the cached
// token is invalidated and the request retried exactly once with a fresh
// login before AuthError surfaces.
type Client struct {
	baseURL string
	wc      webclient.WebClient
	auth    *AuthSession
	logger  interfaces.Logger
}

var _ interfaces.ScannerService = (*Client)(nil)

func NewClient(baseURL string, wc webclient.WebClient, auth *AuthSession, logger interfaces.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wc:      wc,
		auth:    auth,
		logger:  logger.With(interfaces.Field{Key: "component", Value: "scanner_client"}),
	}
}

// StartScan validates the config, encodes it as multipart form data and
// launches the scan.
func (c *Client) StartScan(ctx context.Context, cfg model.ScanConfig) (*model.StartScanResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	body, contentType, err := encodeStartForm(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode scan form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/scan/start", contentType, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &model.ValidationError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var out model.StartScanResult
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: "unexpected start response shape"}
	}
	if out.ScanID == "" {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: "start response missing scan_id"}
	}

	c.logger.Info("scan started",
		interfaces.Field{Key: "scan_id", Value: out.ScanID},
		interfaces.Field{Key: "scanners", Value: strings.Join(cfg.Scanners, ",")})
	return &out, nil
}

// GetStatus reads the current status snapshot for a scan.
func (c *Client) GetStatus(ctx context.Context, scanID string) (*model.ScanStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scan/"+scanID+"/status", "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", model.ErrScanNotFound, scanID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var st model.ScanStatus
	if err := json.Unmarshal(resp.Body, &st); err != nil {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: "unexpected status response shape"}
	}
	st.ScanID = scanID
	return &st, nil
}

// GetFindings fetches raw findings for a scan.
func (c *Client) GetFindings(ctx context.Context, scanID string) ([]model.RawFinding, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scan/"+scanID+"/findings", "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", model.ErrScanNotFound, scanID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var out struct {
		Findings []model.RawFinding `json:"findings"`
		Total    int                `json:"total"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: "unexpected findings response shape"}
	}
	return out.Findings, nil
}

// ListScanners returns the service scanner catalog. Callers fall back to
// DefaultScanners() on error; scan configuration must not block on this.
func (c *Client) ListScanners(ctx context.Context) ([]model.ScannerInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scanners", "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var out struct {
		Available    []string          `json:"available_scanners"`
		Descriptions map[string]string `json:"descriptions"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: "unexpected scanners response shape"}
	}

	infos := make([]model.ScannerInfo, 0, len(out.Available))
	for _, id := range out.Available {
		infos = append(infos, model.ScannerInfo{ID: id, Description: out.Descriptions[id]})
	}
	return infos, nil
}

// ListScans returns prior scans known to the service.
func (c *Client) ListScans(ctx context.Context) ([]model.ScanListEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scans", "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var out struct {
		Scans []model.ScanListEntry `json:"scans"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Message: "unexpected scans response shape"}
	}
	return out.Scans, nil
}

// DefaultScanners is the fallback catalog used when the service listing is
// unavailable.
func DefaultScanners() []model.ScannerInfo {
	return []model.ScannerInfo{
		{ID: "ventiapi", Description: "VentiAPI OpenAPI security scanner"},
		{ID: "zap", Description: "OWASP ZAP API scan"},
	}
}

// do executes one authenticated request, retrying once with a fresh login
// when the service rejects the token.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*webclient.Response, error) {
	token, err := c.auth.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, path, contentType, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.auth.Invalidate()
		token, err = c.auth.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.send(ctx, method, path, contentType, body, token)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &model.AuthError{Reason: "service rejected a freshly issued token"}
		}
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, token string) (*webclient.Response, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("X-Request-ID", uuid.New().String())
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrServiceUnreachable, err)
	}
	return resp, nil
}

func validateConfig(cfg model.ScanConfig) error {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return &model.ValidationError{StatusCode: http.StatusBadRequest, Message: "server_url is required"}
	}
	hasURL := strings.TrimSpace(cfg.SpecURL) != ""
	hasFile := len(cfg.SpecFile) > 0
	if hasURL == hasFile {
		return &model.ValidationError{StatusCode: http.StatusBadRequest, Message: "exactly one of spec URL or spec file must be provided"}
	}
	if len(cfg.Scanners) == 0 {
		return &model.ValidationError{StatusCode: http.StatusBadRequest, Message: "at least one scanner must be selected"}
	}
	return nil
}

func encodeStartForm(cfg model.ScanConfig) ([]byte, string, error) {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"server_url":   cfg.ServerURL,
		"scanners":     strings.Join(cfg.Scanners, ","),
		"dangerous":    strconv.FormatBool(cfg.Dangerous),
		"fuzz_auth":    strconv.FormatBool(cfg.FuzzAuth),
		"rps":          strconv.Itoa(rps),
		"max_requests": strconv.Itoa(maxRequests),
	}
	if cfg.SpecURL != "" {
		fields["target_url"] = cfg.SpecURL
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if len(cfg.SpecFile) > 0 {
		name := cfg.SpecFileName
		if name == "" {
			name = "openapi.json"
		}
		part, err := w.CreateFormFile("spec_file", name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(cfg.SpecFile); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// errorMessage pulls a human message out of an error payload, tolerating
// the couple of shapes the service emits.
func errorMessage(body []byte) string {
	var m struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		if m.Error != "" {
			return m.Error
		}
		if m.Detail != "" {
			return m.Detail
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		s = "no error detail provided"
	}
	return s
}
