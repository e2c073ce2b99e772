package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Now()
	sess := NewSession("ssn-1", "echo", map[string]string{"cpu": "1"}, 3, now)

	assert.Equal(t, SessionID("ssn-1"), sess.ID)
	assert.Equal(t, "echo", sess.Application)
	assert.Equal(t, SessionOpen, sess.State)
	assert.EqualValues(t, 3, sess.Desired)
	assert.EqualValues(t, 0, sess.Allocated)
	assert.Empty(t, sess.Tasks)
	assert.Zero(t, sess.PendingCount())
}

func TestSession_AddTaskAndUpdateState(t *testing.T) {
	sess := NewSession("ssn-1", "echo", nil, 1, time.Now())

	task := &Task{ID: "task-1", SessionID: sess.ID, State: TaskPending}
	sess.AddTask(task)

	require.Equal(t, 1, sess.PendingCount())
	got, ok := sess.GetTask("task-1")
	require.True(t, ok)
	assert.Equal(t, task, got)

	ok = sess.UpdateTaskState("task-1", TaskRunning)
	require.True(t, ok)
	assert.Equal(t, TaskRunning, task.State)
	assert.Zero(t, sess.PendingCount())
	assert.Equal(t, []TaskID{"task-1"}, sess.TasksByState[TaskRunning])
	assert.Empty(t, sess.TasksByState[TaskPending])

	ok = sess.UpdateTaskState("task-1", TaskSucceed)
	require.True(t, ok)
	assert.Equal(t, TaskSucceed, task.State)
	assert.Empty(t, sess.TasksByState[TaskRunning])
	assert.Equal(t, []TaskID{"task-1"}, sess.TasksByState[TaskSucceed])
}

func TestSession_UpdateTaskState_UnknownTask(t *testing.T) {
	sess := NewSession("ssn-1", "echo", nil, 1, time.Now())
	ok := sess.UpdateTaskState("missing", TaskRunning)
	assert.False(t, ok)
}

func TestSession_PopPendingTask_FIFO(t *testing.T) {
	sess := NewSession("ssn-1", "echo", nil, 1, time.Now())
	sess.AddTask(&Task{ID: "task-1", State: TaskPending})
	sess.AddTask(&Task{ID: "task-2", State: TaskPending})
	sess.AddTask(&Task{ID: "task-3", State: TaskPending})

	require.Equal(t, 3, sess.PendingCount())

	id, ok := sess.PopPendingTask()
	require.True(t, ok)
	assert.Equal(t, TaskID("task-1"), id)

	id, ok = sess.PopPendingTask()
	require.True(t, ok)
	assert.Equal(t, TaskID("task-2"), id)

	assert.Equal(t, 1, sess.PendingCount())

	id, ok = sess.PopPendingTask()
	require.True(t, ok)
	assert.Equal(t, TaskID("task-3"), id)

	_, ok = sess.PopPendingTask()
	assert.False(t, ok)
}

func TestTask_IsCompleted(t *testing.T) {
	cases := []struct {
		state TaskState
		want  bool
	}{
		{TaskPending, false},
		{TaskRunning, false},
		{TaskSucceed, true},
		{TaskFailed, true},
	}
	for _, c := range cases {
		task := &Task{State: c.state}
		assert.Equal(t, c.want, task.IsCompleted())
	}
}
