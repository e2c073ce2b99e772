package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/executorfsm"
	"github.com/GeauxEric/flame/internal/model"
)

// RegisterExecutor handles POST /v1/executors. An executor process calls
// this once at startup to obtain its id, declaring the application it
// will run tasks for. The application must be one FlameContext
// configures; otherwise the executor is rejected before it ever reaches
// the scheduler.
func (h *Handler) RegisterExecutor(c *gin.Context) {
	var req registerExecutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	if h.cfg != nil {
		if _, ok := h.cfg.Application(req.Application); !ok {
			writeError(c, apperrors.NewInvalidConfig("unknown application: "+req.Application))
			return
		}
	}

	x, err := h.store.RegisterExecutor(c.Request.Context(), req.Application, req.Slots)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toExecutorResponse(x))
}

// Bind handles POST /v1/executors/:id/bind. It long-polls until the
// scheduler has assigned this executor a session.
func (h *Handler) Bind(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	sess, err := h.store.WaitForBinding(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// BindCompleted handles POST /v1/executors/:id/bind-completed. The
// executor calls this once it has locally attached to the session named
// by Bind.
func (h *Handler) BindCompleted(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	if err := h.store.BindSessionCompleted(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LaunchTask handles POST /v1/executors/:id/launch-task. It long-polls
// until a task is pending in the executor's session, assigns it, and
// returns it. It responds 204 No Content instead once the session is no
// longer open and has nothing pending.
func (h *Handler) LaunchTask(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	task, err := h.store.NextTask(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if task == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// CompleteTask handles POST /v1/executors/:id/complete-task. The
// executor calls this to report the outcome of the task LaunchTask gave
// it.
func (h *Handler) CompleteTask(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	var req completeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	result := executorfsm.TaskResult{Succeeded: req.Succeeded, Output: req.Output}
	if err := h.store.CompleteTask(c.Request.Context(), id, model.TaskID(req.TaskID), result); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unbind handles POST /v1/executors/:id/unbind. The executor calls this
// when it has no more work for its current session and wants to be
// freed for reassignment.
func (h *Handler) Unbind(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	if err := h.store.UnbindExecutor(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnbindCompleted handles POST /v1/executors/:id/unbind-completed. The
// executor calls this once it has locally released the session,
// returning the executor to IDLE.
func (h *Handler) UnbindCompleted(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	if err := h.store.UnbindExecutorCompleted(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetExecutor handles GET /v1/executors/:id.
func (h *Handler) GetExecutor(c *gin.Context) {
	id := model.ExecutorID(c.Param("id"))
	x, err := h.store.GetExecutor(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExecutorResponse(x))
}
