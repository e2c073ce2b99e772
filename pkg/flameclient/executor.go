package flameclient

import (
	"context"
	"net/http"
)

// RegisterExecutor registers a new executor for application with the
// session manager and returns its assigned id.
func (c *Client) RegisterExecutor(ctx context.Context, application string, slots map[string]string) (*Executor, error) {
	req := map[string]any{"application": application, "slots": slots}
	var x Executor
	if err := c.do(ctx, http.MethodPost, "/v1/executors", req, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// GetExecutor fetches an executor's current state.
func (c *Client) GetExecutor(ctx context.Context, id string) (*Executor, error) {
	var x Executor
	if err := c.do(ctx, http.MethodGet, "/v1/executors/"+id, nil, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// Bind long-polls until the scheduler assigns execID a session.
func (c *Client) Bind(ctx context.Context, execID string) (*Session, error) {
	var sess Session
	if err := c.do(ctx, http.MethodPost, "/v1/executors/"+execID+"/bind", nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// BindCompleted reports that execID finished attaching to its bound
// session locally.
func (c *Client) BindCompleted(ctx context.Context, execID string) error {
	return c.do(ctx, http.MethodPost, "/v1/executors/"+execID+"/bind-completed", nil, nil)
}

// LaunchTask long-polls until a task is pending for execID's session and
// returns it, assigned to this executor. It returns (nil, nil) once the
// session has drained with nothing left to dispatch, signaling the
// caller to unbind.
func (c *Client) LaunchTask(ctx context.Context, execID string) (*Task, error) {
	var task Task
	ok, err := c.doOptional(ctx, http.MethodPost, "/v1/executors/"+execID+"/launch-task", nil, &task)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// CompleteTask reports the outcome of the task LaunchTask handed back.
func (c *Client) CompleteTask(ctx context.Context, execID, taskID string, succeeded bool, output []byte) error {
	req := map[string]any{
		"task_id":   taskID,
		"succeeded": succeeded,
		"output":    output,
	}
	return c.do(ctx, http.MethodPost, "/v1/executors/"+execID+"/complete-task", req, nil)
}

// Unbind requests release from execID's current session.
func (c *Client) Unbind(ctx context.Context, execID string) error {
	return c.do(ctx, http.MethodPost, "/v1/executors/"+execID+"/unbind", nil, nil)
}

// UnbindCompleted reports execID has locally released its session and is
// free for reassignment.
func (c *Client) UnbindCompleted(ctx context.Context, execID string) error {
	return c.do(ctx, http.MethodPost, "/v1/executors/"+execID+"/unbind-completed", nil, nil)
}
