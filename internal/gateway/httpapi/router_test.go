package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/internal/engine/memory"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(context.Background(), memory.New(), time.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.FlameContext{
		Applications: []config.Application{{Name: "echo", Command: "cat"}},
	}
	return NewRouter(store, cfg, logger.Default())
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateSession_Success(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", createSessionRequest{Application: "echo", Desired: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo", resp.Application)
	assert.Equal(t, "OPEN", resp.State)
	assert.EqualValues(t, 2, resp.Desired)
}

func TestCreateSession_MissingApplicationField(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]any{"desired": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSession_NotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/v1/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Code)
}

func TestRegisterExecutor_RejectsUnknownApplication(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/executors", registerExecutorRequest{Application: "nonexistent"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterExecutor_Success(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/executors", registerExecutorRequest{Application: "echo", Slots: map[string]string{"cpu": "1"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp executorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo", resp.Application)
	assert.Equal(t, "IDLE", resp.State)
}

func TestTaskLifecycle_EndToEnd(t *testing.T) {
	r := newTestRouter(t)

	sessRec := doJSON(t, r, http.MethodPost, "/v1/sessions", createSessionRequest{Application: "echo", Desired: 1})
	require.Equal(t, http.StatusCreated, sessRec.Code)
	var sess sessionResponse
	require.NoError(t, json.Unmarshal(sessRec.Body.Bytes(), &sess))

	taskRec := doJSON(t, r, http.MethodPost, "/v1/sessions/"+sess.ID+"/tasks", createTaskRequest{Input: []byte("hello")})
	require.Equal(t, http.StatusCreated, taskRec.Code)
	var task taskResponse
	require.NoError(t, json.Unmarshal(taskRec.Body.Bytes(), &task))
	assert.Equal(t, "PENDING", task.State)

	getRec := doJSON(t, r, http.MethodGet, "/v1/sessions/"+sess.ID+"/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestCloseSession_ThenCreateTaskFails(t *testing.T) {
	r := newTestRouter(t)

	sessRec := doJSON(t, r, http.MethodPost, "/v1/sessions", createSessionRequest{Application: "echo", Desired: 1})
	var sess sessionResponse
	require.NoError(t, json.Unmarshal(sessRec.Body.Bytes(), &sess))

	closeRec := doJSON(t, r, http.MethodPost, "/v1/sessions/"+sess.ID+"/close", nil)
	assert.Equal(t, http.StatusNoContent, closeRec.Code)

	taskRec := doJSON(t, r, http.MethodPost, "/v1/sessions/"+sess.ID+"/tasks", createTaskRequest{Input: []byte("x")})
	assert.Equal(t, http.StatusBadRequest, taskRec.Code)
}
