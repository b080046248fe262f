package member

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"netring/internal/wire"
)

// RegistryClient is the member's single pooled HTTP client toward the
// registry, per spec.md §5: "one pooled client per member (max 5
// connections per host, keep-alive 30s)". Every call carries an explicit
// deadline; there are no unbounded waits.
type RegistryClient struct {
	baseURL string
	http    *http.Client
}

// NewRegistryClient builds a client against baseURL (e.g.
// "http://registry.internal:8080").
func NewRegistryClient(baseURL string) *RegistryClient {
	transport := &http.Transport{
		MaxConnsPerHost:     5,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
	return &RegistryClient{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport},
	}
}

// Close idles out pooled connections on shutdown.
func (c *RegistryClient) Close() {
	c.http.CloseIdleConnections()
}

func (c *RegistryClient) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("registry request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response from %s: %w", path, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

// Register calls POST /register.
func (c *RegistryClient) Register(ctx context.Context, req wire.RegisterRequest) (wire.RegisterResponse, error) {
	var resp wire.RegisterResponse
	status, err := c.do(ctx, http.MethodPost, "/register", req, &resp)
	if err != nil {
		return resp, err
	}
	if status >= 300 {
		return resp, fmt.Errorf("register rejected: status %d", status)
	}
	return resp, nil
}

// HeartbeatStatus is the outcome of a heartbeat call, distinguishing the
// re-registration trigger (Gone/NotFound) from transient failure.
type HeartbeatStatus int

const (
	HeartbeatOK HeartbeatStatus = iota
	HeartbeatGoneOrUnknown
	HeartbeatTransientError
)

// Heartbeat calls POST /heartbeat.
func (c *RegistryClient) Heartbeat(ctx context.Context, instanceID string) (HeartbeatStatus, error) {
	status, err := c.do(ctx, http.MethodPost, "/heartbeat", wire.InstanceRequest{InstanceID: instanceID}, nil)
	if err != nil {
		return HeartbeatTransientError, err
	}
	switch {
	case status == http.StatusOK:
		return HeartbeatOK, nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return HeartbeatGoneOrUnknown, nil
	default:
		return HeartbeatTransientError, fmt.Errorf("heartbeat failed: status %d", status)
	}
}

// Deregister calls POST /deregister, best-effort: callers treat any error
// as non-fatal since it only runs during shutdown.
func (c *RegistryClient) Deregister(ctx context.Context, instanceID string) error {
	_, err := c.do(ctx, http.MethodPost, "/deregister", wire.InstanceRequest{InstanceID: instanceID}, nil)
	return err
}

// Poll calls GET /members.
func (c *RegistryClient) Poll(ctx context.Context) ([]wire.Member, error) {
	var resp wire.MembersResponse
	status, err := c.do(ctx, http.MethodGet, "/members", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("poll failed: status %d", status)
	}
	return resp.Members, nil
}

// PushMetrics calls POST /report_metrics.
func (c *RegistryClient) PushMetrics(ctx context.Context, instanceID string, snapshot wire.Snapshot) error {
	status, err := c.do(ctx, http.MethodPost, "/report_metrics", wire.ReportMetricsRequest{
		InstanceID: instanceID,
		Snapshot:   snapshot,
	}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("push metrics failed: status %d", status)
	}
	return nil
}
