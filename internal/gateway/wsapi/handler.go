// Package wsapi streams task state transitions over a WebSocket. It is
// the push-based counterpart to httpapi's long-polling watch endpoint:
// a client opens one socket per task and receives a JSON message each
// time storage.WatchTaskUpdates observes a new state.
package wsapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/model"
	"github.com/GeauxEric/flame/internal/storage"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket connections that stream
// task updates.
type Handler struct {
	store *storage.Storage
	log   *logger.Logger
}

// NewHandler constructs a Handler over store.
func NewHandler(store *storage.Storage, log *logger.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With(zap.String("component", "wsapi")),
	}
}

type taskEvent struct {
	TaskID      model.TaskID    `json:"task_id"`
	State       model.TaskState `json:"state"`
	Output      []byte          `json:"output,omitempty"`
	CreatedAt   time.Time       `json:"creation_time"`
	CompletedAt *time.Time      `json:"completion_time,omitempty"`
}

// WatchTask handles GET /v1/sessions/:id/tasks/:taskId/stream. It
// upgrades the connection and writes one JSON frame per task state
// transition until the task reaches a terminal state or the client
// disconnects.
func (h *Handler) WatchTask(c *gin.Context) {
	ssnID := model.SessionID(c.Param("id"))
	taskID := model.TaskID(c.Param("taskId"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	log := h.log.With(zap.String("conn_id", connID), zap.String("task_id", string(taskID)))
	log.Debug("task watch stream opened")
	defer log.Debug("task watch stream closed")

	ctx := c.Request.Context()
	updates := make(chan model.Task, 8)
	go h.store.WatchTaskUpdates(ctx, ssnID, taskID, updates)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go drainReads(conn)

	for {
		select {
		case task, ok := <-updates:
			if !ok {
				return
			}
			evt := taskEvent{
				TaskID:      task.ID,
				State:       task.State,
				Output:      task.Output,
				CreatedAt:   task.CreationTime,
				CompletedAt: task.CompletionTime,
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				log.Error("marshal task event", zap.Error(err))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			if task.IsCompleted() {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// drainReads discards client frames (this stream is server-push only)
// so pong control frames still reach the handler.
func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
