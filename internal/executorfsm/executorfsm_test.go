package executorfsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/model"
)

func TestIdleState_BindSession(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorIdle}
	sess := &model.Session{ID: "ssn-1", Desired: 2}
	now := time.Now()

	err := ForExecutor(exec.State).BindSession(exec, sess, now)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutorBinding, exec.State)
	require.NotNil(t, exec.SessionID)
	assert.Equal(t, model.SessionID("ssn-1"), *exec.SessionID)
	assert.EqualValues(t, 1, sess.Allocated)
}

func TestIdleState_RejectsOtherVerbs(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorIdle}
	st := ForExecutor(exec.State)

	err := st.LaunchTask(exec, nil, nil, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))

	err = st.BindSessionCompleted(exec, nil, time.Now())
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))
}

func TestBindingState_BindSessionCompleted(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBinding}
	err := ForExecutor(exec.State).BindSessionCompleted(exec, &model.Session{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutorBound, exec.State)
}

func TestBindingState_RejectsBindSession(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBinding}
	err := ForExecutor(exec.State).BindSession(exec, &model.Session{}, time.Now())
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))
}

func TestBindingState_UnbindExecutor(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBinding}
	err := ForExecutor(exec.State).UnbindExecutor(exec, &model.Session{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutorUnbinding, exec.State)
}

func TestBoundState_LaunchAndCompleteTask(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBound}
	task := &model.Task{ID: "task-1", State: model.TaskPending}
	now := time.Now()

	st := ForExecutor(exec.State)
	require.NoError(t, st.LaunchTask(exec, &model.Session{}, task, now))
	require.NotNil(t, exec.TaskID)
	assert.Equal(t, model.TaskID("task-1"), *exec.TaskID)
	assert.Equal(t, model.TaskRunning, task.State)

	// a second launch while one is already in flight is illegal
	err := st.LaunchTask(exec, &model.Session{}, &model.Task{ID: "task-2", State: model.TaskPending}, now)
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))

	require.NoError(t, st.CompleteTask(exec, &model.Session{}, task, TaskResult{Succeeded: true, Output: []byte("ok")}, now))
	assert.Nil(t, exec.TaskID)
	assert.Equal(t, model.TaskSucceed, task.State)
	assert.Equal(t, []byte("ok"), task.Output)
	require.NotNil(t, task.CompletionTime)

	// a stale executor reporting completion for a task it is not running
	err = st.CompleteTask(exec, &model.Session{}, task, TaskResult{Succeeded: true}, now)
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))
}

func TestBoundState_CompleteTaskFailure(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBound}
	task := &model.Task{ID: "task-1", State: model.TaskPending}
	now := time.Now()

	st := ForExecutor(exec.State)
	require.NoError(t, st.LaunchTask(exec, &model.Session{}, task, now))
	require.NoError(t, st.CompleteTask(exec, &model.Session{}, task, TaskResult{Succeeded: false, Output: []byte("boom")}, now))
	assert.Equal(t, model.TaskFailed, task.State)
}

func TestBoundState_UnbindExecutorWithInFlightTaskMovesToUnbindingAndDrains(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBound}
	sess := &model.Session{}
	task := &model.Task{ID: "task-1", State: model.TaskPending}
	now := time.Now()

	st := ForExecutor(exec.State)
	require.NoError(t, st.LaunchTask(exec, sess, task, now))

	require.NoError(t, st.UnbindExecutor(exec, sess, now))
	assert.Equal(t, model.ExecutorUnbinding, exec.State)
	require.NotNil(t, exec.TaskID, "the in-flight task is still owned by the executor in Unbinding")

	// the task in flight when unbind was requested still finishes, via
	// Unbinding's own CompleteTask, rather than being abandoned.
	st = ForExecutor(exec.State)
	require.NoError(t, st.CompleteTask(exec, sess, task, TaskResult{Succeeded: true, Output: []byte("ok")}, now))
	assert.Nil(t, exec.TaskID)
	assert.Equal(t, model.TaskSucceed, task.State)
	assert.Equal(t, []byte("ok"), task.Output)
}

func TestBoundState_UnbindExecutorWhenIdle(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorBound}
	err := ForExecutor(exec.State).UnbindExecutor(exec, &model.Session{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutorUnbinding, exec.State)
}

func TestUnbindingState_Completed(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorUnbinding}
	sess := &model.Session{Allocated: 1}

	err := ForExecutor(exec.State).UnbindExecutorCompleted(exec, sess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutorIdle, exec.State)
	assert.Nil(t, exec.SessionID)
	assert.EqualValues(t, 0, sess.Allocated)
}

func TestUnbindingState_CompletedClampsAllocatedAtZero(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorUnbinding}
	sess := &model.Session{Allocated: 0}

	err := ForExecutor(exec.State).UnbindExecutorCompleted(exec, sess, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, sess.Allocated)
}

func TestUnknownState_RejectsEveryVerb(t *testing.T) {
	exec := &model.Executor{State: model.ExecutorUnknown}
	st := ForExecutor(exec.State)
	now := time.Now()

	assert.True(t, apperrors.Is(st.BindSession(exec, &model.Session{}, now), apperrors.InvalidState))
	assert.True(t, apperrors.Is(st.BindSessionCompleted(exec, &model.Session{}, now), apperrors.InvalidState))
	assert.True(t, apperrors.Is(st.LaunchTask(exec, &model.Session{}, &model.Task{}, now), apperrors.InvalidState))
	assert.True(t, apperrors.Is(st.CompleteTask(exec, &model.Session{}, &model.Task{}, TaskResult{}, now), apperrors.InvalidState))
	assert.True(t, apperrors.Is(st.UnbindExecutor(exec, &model.Session{}, now), apperrors.InvalidState))
	assert.True(t, apperrors.Is(st.UnbindExecutorCompleted(exec, &model.Session{}, now), apperrors.InvalidState))
}

func TestForExecutor_UnrecognizedStateFallsBackToUnknown(t *testing.T) {
	st := ForExecutor(model.ExecutorState("GARBAGE"))
	assert.IsType(t, unknownState{}, st)
}
