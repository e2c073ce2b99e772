// Package flameclient is the HTTP client library flmctl and
// flame-executor-manager use to talk to flame-session-manager. It wraps
// the gateway's /v1 REST surface (spec §6) behind typed Go calls.
package flameclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin REST client over a flame-session-manager endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client dialing endpoint ("http://host:port").
func New(endpoint string) *Client {
	return &Client{
		baseURL: endpoint,
		http:    &http.Client{Timeout: 0},
	}
}

// ErrorResponse mirrors httpapi's JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("flame: unexpected status %d", resp.StatusCode)
		}
		return &errResp
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// doOptional is do for endpoints where a 204 means "nothing to report"
// rather than success-with-no-body: ok is false in that case and out is
// left untouched.
func (c *Client) doOptional(ctx context.Context, method, path string, body any, out any) (ok bool, err error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return false, fmt.Errorf("flame: unexpected status %d", resp.StatusCode)
		}
		return false, &errResp
	}
	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// Session is the client-side view of a session.
type Session struct {
	ID             string            `json:"id"`
	Application    string            `json:"application"`
	Slots          map[string]string `json:"slots"`
	State          string            `json:"state"`
	Desired        int32             `json:"desired"`
	Allocated      int32             `json:"allocated"`
	CreationTime   time.Time         `json:"creation_time"`
	CompletionTime *time.Time        `json:"completion_time,omitempty"`
}

// Task is the client-side view of a task.
type Task struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Input          []byte     `json:"input,omitempty"`
	Output         []byte     `json:"output,omitempty"`
	State          string     `json:"state"`
	CreationTime   time.Time  `json:"creation_time"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

// Executor is the client-side view of an executor.
type Executor struct {
	ID           string            `json:"id"`
	Application  string            `json:"application"`
	Slots        map[string]string `json:"slots"`
	State        string            `json:"state"`
	SessionID    string            `json:"session_id,omitempty"`
	TaskID       string            `json:"task_id,omitempty"`
	CreationTime time.Time         `json:"creation_time"`
}

// CreateSession submits a new session.
func (c *Client) CreateSession(ctx context.Context, application string, slots map[string]string, desired int32) (*Session, error) {
	req := map[string]any{
		"application": application,
		"slots":       slots,
		"desired":     desired,
	}
	var sess Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession fetches a session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+id, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions lists every session known to the server.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// WaitForSession blocks until the session leaves OPEN state.
func (c *Client) WaitForSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+id+"/wait", nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// CloseSession stops a session from accepting new tasks.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/sessions/"+id+"/close", nil, nil)
}

// DeleteSession removes a closed/terminated session and its history.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+id, nil, nil)
}

// CreateTask submits a task to an open session.
func (c *Client) CreateTask(ctx context.Context, sessionID string, input []byte) (*Task, error) {
	req := map[string]any{"input": input}
	var task Task
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+sessionID+"/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask fetches a task's current state.
func (c *Client) GetTask(ctx context.Context, sessionID, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+sessionID+"/tasks/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// WatchTask long-polls until the task reaches a terminal state.
func (c *Client) WatchTask(ctx context.Context, sessionID, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+sessionID+"/tasks/"+taskID+"/watch", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
