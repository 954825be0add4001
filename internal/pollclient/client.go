// Package pollclient is the consumer side of the job protocol: an HTTP client
// for the coordinator API, bounded poll sessions that track a job or a warmup
// to a terminal outcome, and a retry-with-warmup wrapper for engines with
// unreliable cold starts.
package pollclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"inferd/pkg/types"
)

// APIError is an application-level error decoded from a coordinator error
// response. Transport failures are never wrapped in it, so callers (and the
// poll session) can tell "the server said no" from "the network is down".
type APIError struct {
	Kind    types.ErrorKind
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
}

// IsKind reports whether err carries the given error kind. Server-produced
// kinds arrive as APIError; Unavailable and LoadFailed are produced by the
// poll session itself.
func IsKind(err error, kind types.ErrorKind) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return kind == types.KindUnavailable
	}
	var le *LoadFailedError
	if errors.As(err, &le) {
		return kind == types.KindLoadFailed
	}
	return false
}

// Client talks to one coordinator daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Warmup triggers the idempotent warmup endpoint.
func (c *Client) Warmup(ctx context.Context, model string) (types.WarmupResponse, error) {
	var out types.WarmupResponse
	err := c.do(ctx, http.MethodPost, "/v1/models/"+model+"/warmup", nil, &out)
	return out, err
}

// Submit posts one inference payload and returns the job id to poll.
func (c *Client) Submit(ctx context.Context, model string, payload json.RawMessage) (string, error) {
	var out types.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/v1/models/"+model+"/jobs", types.SubmitRequest{Input: payload}, &out)
	return out.JobID, err
}

// JobStatus reads one job record.
func (c *Client) JobStatus(ctx context.Context, model, jobID string) (types.JobStatusResponse, error) {
	var out types.JobStatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/models/"+model+"/jobs/"+jobID, nil, &out)
	return out, err
}

// Health reads the readiness phase. Non-200 probe codes (202 loading, 503
// cold/error) still carry a phase body and are not errors here.
func (c *Client) Health(ctx context.Context, model string) (types.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models/"+model+"/healthz", nil)
	if err != nil {
		return types.HealthResponse{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.HealthResponse{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.HealthResponse{}, err
	}
	var h types.HealthResponse
	if err := json.Unmarshal(body, &h); err == nil && h.Phase != "" {
		return h, nil
	}
	return types.HealthResponse{}, c.decodeError(resp.StatusCode, body)
}

// Reset forces a model back to UNLOADED so it can be warmed up from scratch.
func (c *Client) Reset(ctx context.Context, model string) (types.WarmupResponse, error) {
	var out types.WarmupResponse
	err := c.do(ctx, http.MethodPost, "/v1/models/"+model+"/reset", nil, &out)
	return out, err
}

// StatusReport reads the operational report.
func (c *Client) StatusReport(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) decodeError(status int, body []byte) error {
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Kind != "" {
		return &APIError{Kind: er.Kind, Message: er.Error, Code: status}
	}
	return &APIError{Kind: types.KindInternalError, Message: string(body), Code: status}
}
