package bolagsverket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sveahq/bolagsagent/internal/observability"
)

// maxErrorBody caps how much of an upstream error response is carried
// into error values and logs.
const maxErrorBody = 512

// TokenSource supplies a valid bearer token for upstream calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config configures the registry API client.
type Config struct {
	BaseURL string
	Tokens  TokenSource

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Timeout bounds metadata calls; DownloadTimeout bounds document
	// downloads, which move whole archives.
	Timeout         time.Duration
	DownloadTimeout time.Duration

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Client talks to Bolagsverket's open-data API. Every request carries a
// fresh X-Request-Id and a bearer token from the token source.
type Client struct {
	baseURL         string
	tokens          TokenSource
	http            *http.Client
	timeout         time.Duration
	downloadTimeout time.Duration
	logger          *observability.Logger
	metrics         *observability.Metrics
}

// NewClient creates a registry API client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	downloadTimeout := cfg.DownloadTimeout
	if downloadTimeout == 0 {
		downloadTimeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{Output: io.Discard})
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		tokens:          cfg.Tokens,
		http:            httpClient,
		timeout:         timeout,
		downloadTimeout: downloadTimeout,
		logger:          logger,
		metrics:         cfg.Metrics,
	}
}

// Organisation looks up a single organisation by number. Returns
// ErrNotFound when the registry has no record for it.
func (c *Client) Organisation(ctx context.Context, orgnr string) (*Organisation, error) {
	body := map[string]string{"identitetsbeteckning": NormalizeOrgNr(orgnr)}

	data, err := c.do(ctx, http.MethodPost, "/organisationer", body, c.timeout)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Organisationer []Organisation `json:"organisationer"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &TransportError{Endpoint: "/organisationer", Err: err}
	}
	if len(resp.Organisationer) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Organisationer[0], nil
}

// Dokumentlista fetches the annual report document list for an organisation.
func (c *Client) Dokumentlista(ctx context.Context, orgnr string) ([]Dokument, error) {
	body := map[string]string{"identitetsbeteckning": NormalizeOrgNr(orgnr)}

	data, err := c.do(ctx, http.MethodPost, "/dokumentlista", body, c.timeout)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Dokument []Dokument `json:"dokument"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &TransportError{Endpoint: "/dokumentlista", Err: err}
	}
	return resp.Dokument, nil
}

// Dokument downloads a document by ID. The payload is typically a ZIP
// archive containing an iXBRL annual report.
func (c *Client) Dokument(ctx context.Context, dokumentID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/dokument/"+dokumentID, nil, c.downloadTimeout)
}

// IsAlive probes the registry's health endpoint.
func (c *Client) IsAlive(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/isalive", nil, c.timeout)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error(ctx, "upstream request failed", "endpoint", path, "error", err)
		if c.metrics != nil {
			c.metrics.RecordError("upstream", "transport")
		}
		return nil, &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: path, Err: err}
	}

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := upstreamDetail(data)
		c.logger.Warn(ctx, "upstream returned error status",
			"endpoint", path, "status", resp.StatusCode, "detail", detail)
		return nil, &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Body: detail}
	}

	c.logger.Debug(ctx, "upstream request completed",
		"endpoint", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return data, nil
}

// upstreamDetail extracts the "detail" field from a problem response,
// falling back to the truncated raw body.
func upstreamDetail(body []byte) string {
	var problem struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && problem.Detail != "" {
		return problem.Detail
	}
	s := string(body)
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

// PeriodString renders the document's reporting period for display.
func (d *Dokument) PeriodString() string {
	if d.Rapporteringsperiod.Fran == "" && d.Rapporteringsperiod.Till == "" {
		return "-"
	}
	return fmt.Sprintf("%s – %s", d.Rapporteringsperiod.Fran, d.Rapporteringsperiod.Till)
}
