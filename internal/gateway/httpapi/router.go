package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/internal/gateway/wsapi"
	"github.com/GeauxEric/flame/internal/httpmw"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/storage"
)

// NewRouter builds the Gin engine for the session manager's HTTP API.
func NewRouter(store *storage.Storage, cfg *config.FlameContext, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmw.OtelTracing("flame-session-manager"))
	r.Use(httpmw.RequestLogger(log))

	h := NewHandler(store, cfg, log)
	ws := wsapi.NewHandler(store, log)

	v1 := r.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		sessions.POST("", h.CreateSession)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.GET("/:id/wait", h.WaitForSession)
		sessions.POST("/:id/close", h.CloseSession)
		sessions.DELETE("/:id", h.DeleteSession)

		sessions.POST("/:id/tasks", h.CreateTask)
		sessions.GET("/:id/tasks/:taskId", h.GetTask)
		sessions.GET("/:id/tasks/:taskId/watch", h.WatchTask)
		sessions.GET("/:id/tasks/:taskId/stream", ws.WatchTask)

		executors := v1.Group("/executors")
		executors.POST("", h.RegisterExecutor)
		executors.GET("/:id", h.GetExecutor)
		executors.POST("/:id/bind", h.Bind)
		executors.POST("/:id/bind-completed", h.BindCompleted)
		executors.POST("/:id/launch-task", h.LaunchTask)
		executors.POST("/:id/complete-task", h.CompleteTask)
		executors.POST("/:id/unbind", h.Unbind)
		executors.POST("/:id/unbind-completed", h.UnbindCompleted)
	}

	return r
}
