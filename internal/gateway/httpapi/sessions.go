package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/model"
)

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	sess, err := h.store.CreateSession(c.Request.Context(), req.Application, req.Slots, req.Desired)
	if err != nil {
		h.log.WithError(err).Error("create session failed", zap.String("application", req.Application))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(sess))
}

// GetSession handles GET /v1/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.store.GetSession(model.SessionID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// ListSessions handles GET /v1/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions := h.store.ListSessions()
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	c.JSON(http.StatusOK, listSessionsResponse{Sessions: out})
}

// CloseSession handles POST /v1/sessions/:id/close.
func (h *Handler) CloseSession(c *gin.Context) {
	id := model.SessionID(c.Param("id"))
	if err := h.store.CloseSession(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteSession handles DELETE /v1/sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	id := model.SessionID(c.Param("id"))
	if err := h.store.DeleteSession(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WaitForSession handles GET /v1/sessions/:id/wait, a long poll that
// returns once the session leaves OPEN.
func (h *Handler) WaitForSession(c *gin.Context) {
	id := model.SessionID(c.Param("id"))
	if err := h.store.WaitForSession(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	sess, err := h.store.GetSession(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// CreateTask handles POST /v1/sessions/:id/tasks.
func (h *Handler) CreateTask(c *gin.Context) {
	ssnID := model.SessionID(c.Param("id"))
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	task, err := h.store.CreateTask(c.Request.Context(), ssnID, req.Input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// GetTask handles GET /v1/sessions/:id/tasks/:taskId.
func (h *Handler) GetTask(c *gin.Context) {
	ssnID := model.SessionID(c.Param("id"))
	taskID := model.TaskID(c.Param("taskId"))
	task, err := h.store.GetTask(ssnID, taskID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// WatchTask handles GET /v1/sessions/:id/tasks/:taskId/watch, a long
// poll returning once the task reaches a terminal state. Storage's
// WatchTask resolves on any state change, so this repeatedly re-watches
// until the task is actually done (spec §4.G). The streaming variant
// lives in the wsapi package.
func (h *Handler) WatchTask(c *gin.Context) {
	ssnID := model.SessionID(c.Param("id"))
	taskID := model.TaskID(c.Param("taskId"))
	var task *model.Task
	for {
		var err error
		task, err = h.store.WatchTask(c.Request.Context(), ssnID, taskID)
		if err != nil {
			writeError(c, err)
			return
		}
		if task.IsCompleted() {
			break
		}
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}
