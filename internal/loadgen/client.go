package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Outcomes of one submission.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
)

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type jobResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

// client wraps http.Client for the simulation API.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, data, nil
}

// health checks that the service answers on /healthz.
func (c *client) health(ctx context.Context) error {
	resp, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// submit posts one request. Rejected submissions carry the service's
// error code.
func (c *client) submit(ctx context.Context, req simulationRequest) (outcome, id, code string, err error) {
	resp, data, err := c.do(ctx, http.MethodPost, "/simulations", req)
	if err != nil {
		return "", "", "", err
	}
	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		var ack ackResponse
		if err := json.Unmarshal(data, &ack); err != nil {
			return "", "", "", fmt.Errorf("decode ack: %w", err)
		}
		if ack.Duplicate {
			return outcomeDuplicate, ack.ID, "", nil
		}
		return outcomeAccepted, ack.ID, "", nil
	default:
		var er errorResponse
		if err := json.Unmarshal(data, &er); err != nil || er.Code == "" {
			er.Code = fmt.Sprintf("http_%d", resp.StatusCode)
		}
		return outcomeRejected, "", er.Code, nil
	}
}

// job reads the current state of one job.
func (c *client) job(ctx context.Context, id string) (jobResponse, error) {
	var job jobResponse
	resp, data, err := c.do(ctx, http.MethodGet, "/simulations/"+url.PathEscape(id), nil)
	if err != nil {
		return job, err
	}
	if resp.StatusCode != http.StatusOK {
		return job, fmt.Errorf("job %s: status %d", id, resp.StatusCode)
	}
	if err := json.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

// await polls id until the job finishes or ctx is done.
func (c *client) await(ctx context.Context, id string, interval time.Duration) (jobResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.job(ctx, id)
		if err != nil {
			return job, err
		}
		if job.Status == "succeeded" || job.Status == "failed" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
