package httpapi

import (
	"time"

	"github.com/GeauxEric/flame/internal/model"
)

type createSessionRequest struct {
	Application string            `json:"application" binding:"required"`
	Slots       map[string]string `json:"slots"`
	Desired     int32             `json:"desired"`
}

type sessionResponse struct {
	ID             string            `json:"id"`
	Application    string            `json:"application"`
	Slots          map[string]string `json:"slots"`
	State          string            `json:"state"`
	Desired        int32             `json:"desired"`
	Allocated      int32             `json:"allocated"`
	CreationTime   time.Time         `json:"creation_time"`
	CompletionTime *time.Time        `json:"completion_time,omitempty"`
}

func toSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{
		ID:             string(s.ID),
		Application:    s.Application,
		Slots:          s.Slots,
		State:          string(s.State),
		Desired:        s.Desired,
		Allocated:      s.Allocated,
		CreationTime:   s.CreationTime,
		CompletionTime: s.CompletionTime,
	}
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type createTaskRequest struct {
	Input []byte `json:"input"`
}

type taskResponse struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	Input          []byte     `json:"input,omitempty"`
	Output         []byte     `json:"output,omitempty"`
	State          string     `json:"state"`
	CreationTime   time.Time  `json:"creation_time"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:             string(t.ID),
		SessionID:      string(t.SessionID),
		Input:          t.Input,
		Output:         t.Output,
		State:          string(t.State),
		CreationTime:   t.CreationTime,
		CompletionTime: t.CompletionTime,
	}
}

type registerExecutorRequest struct {
	Application string            `json:"application" binding:"required"`
	Slots       map[string]string `json:"slots"`
}

type executorResponse struct {
	ID           string            `json:"id"`
	Application  string            `json:"application"`
	Slots        map[string]string `json:"slots"`
	State        string            `json:"state"`
	SessionID    string            `json:"session_id,omitempty"`
	TaskID       string            `json:"task_id,omitempty"`
	CreationTime time.Time         `json:"creation_time"`
}

func toExecutorResponse(x *model.Executor) executorResponse {
	r := executorResponse{
		ID:           string(x.ID),
		Application:  x.Application,
		Slots:        x.Slots,
		State:        string(x.State),
		CreationTime: x.CreationTime,
	}
	if x.SessionID != nil {
		r.SessionID = string(*x.SessionID)
	}
	if x.TaskID != nil {
		r.TaskID = string(*x.TaskID)
	}
	return r
}

type completeTaskRequest struct {
	TaskID    string `json:"task_id" binding:"required"`
	Succeeded bool   `json:"succeeded"`
	Output    []byte `json:"output"`
}
