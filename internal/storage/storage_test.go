package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/engine/memory"
	"github.com/GeauxEric/flame/internal/executorfsm"
	"github.com/GeauxEric/flame/internal/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(context.Background(), memory.New(), time.Now)
	require.NoError(t, err)
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStorage(t)

	sess, err := s.CreateSession(context.Background(), "echo", map[string]string{"cpu": "1"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "echo", sess.Application)
	assert.Equal(t, model.SessionOpen, sess.State)

	got, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	_, err = s.GetSession("missing")
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}

func TestListSessions(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.CreateSession(context.Background(), "echo", nil, 1)
	require.NoError(t, err)
	_, err = s.CreateSession(context.Background(), "echo", nil, 1)
	require.NoError(t, err)

	assert.Len(t, s.ListSessions(), 2)
}

func TestCreateTask_RejectsClosedSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	require.NoError(t, s.CloseSession(ctx, sess.ID))

	_, err = s.CreateTask(ctx, sess.ID, []byte("hi"))
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))
}

func TestCloseSession_LeavesClosedWithNoOutstandingTasks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	require.NoError(t, s.CloseSession(ctx, sess.ID))

	got, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	// terminateIfDrained only runs on a task/executor transition, so a
	// session closed with nothing ever having run stays CLOSED.
	assert.Equal(t, model.SessionClosed, got.State)
}

func TestCloseSession_TerminatesOnceTasksDrain(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, sess.ID, []byte("hi"))
	require.NoError(t, err)

	require.NoError(t, s.CloseSession(ctx, sess.ID))
	got, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, got.State)

	require.NoError(t, s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskSucceed, []byte("done")))
	got, err = s.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionTerminated, got.State)
}

func TestDeleteSession_RequiresClosedOrTerminated(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)

	err = s.DeleteSession(ctx, sess.ID)
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))

	require.NoError(t, s.CloseSession(ctx, sess.ID))
	require.NoError(t, s.DeleteSession(ctx, sess.ID))

	_, err = s.GetSession(sess.ID)
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}

func TestTaskDispatch_BindLaunchComplete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, sess.ID, []byte("payload"))
	require.NoError(t, err)

	exec, err := s.RegisterExecutor(ctx, "echo", map[string]string{"cpu": "1"})
	require.NoError(t, err)

	require.NoError(t, s.BindSession(ctx, exec.ID, sess.ID))
	require.NoError(t, s.BindSessionCompleted(ctx, exec.ID))

	launched, err := s.LaunchTask(ctx, exec.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskRunning, launched.State)

	require.NoError(t, s.CompleteTask(ctx, exec.ID, task.ID, executorfsm.TaskResult{Succeeded: true, Output: []byte("ok")}))

	got, err := s.GetTask(sess.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskSucceed, got.State)
	assert.Equal(t, []byte("ok"), got.Output)

	execGot, err := s.GetExecutor(exec.ID)
	require.NoError(t, err)
	assert.Nil(t, execGot.TaskID)
}

func TestNextTask_ReturnsNilOnceSessionDrained(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	exec, err := s.RegisterExecutor(ctx, "echo", map[string]string{"cpu": "1"})
	require.NoError(t, err)
	require.NoError(t, s.BindSession(ctx, exec.ID, sess.ID))
	require.NoError(t, s.BindSessionCompleted(ctx, exec.ID))
	require.NoError(t, s.CloseSession(ctx, sess.ID))

	task, err := s.NextTask(ctx, exec.ID)
	require.NoError(t, err)
	assert.Nil(t, task, "a closed session with nothing pending must not block NextTask forever")
}

func TestUpdateTaskState_RejectsAlreadyCompleted(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, sess.ID, nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskSucceed, nil))
	err = s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskFailed, nil)
	assert.True(t, apperrors.Is(err, apperrors.InvalidState))
}

func TestWatchTask_WakesOnChange(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, sess.ID, nil)
	require.NoError(t, err)

	done := make(chan *model.Task, 1)
	errCh := make(chan error, 1)
	go func() {
		got, err := s.WatchTask(context.Background(), sess.ID, task.ID)
		if err != nil {
			errCh <- err
			return
		}
		done <- got
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskSucceed, []byte("result")))

	select {
	case got := <-done:
		assert.Equal(t, model.TaskSucceed, got.State)
		assert.Equal(t, []byte("result"), got.Output)
	case err := <-errCh:
		t.Fatalf("WatchTask returned error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("WatchTask did not wake up within timeout")
	}
}

func TestWatchTask_WakesOnNonTerminalChange(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, sess.ID, nil)
	require.NoError(t, err)

	done := make(chan *model.Task, 1)
	errCh := make(chan error, 1)
	go func() {
		got, err := s.WatchTask(context.Background(), sess.ID, task.ID)
		if err != nil {
			errCh <- err
			return
		}
		done <- got
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskRunning, nil))

	select {
	case got := <-done:
		assert.Equal(t, model.TaskRunning, got.State, "a Pending->Running move is not terminal but must still wake WatchTask")
	case err := <-errCh:
		t.Fatalf("WatchTask returned error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("WatchTask did not wake up within timeout")
	}
}

func TestWatchTaskUpdates_StreamsEveryTransition(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, sess.ID, nil)
	require.NoError(t, err)

	ch := make(chan model.Task, 4)
	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.WatchTaskUpdates(watchCtx, sess.ID, task.ID, ch)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskRunning, nil))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.UpdateTaskState(ctx, sess.ID, task.ID, model.TaskSucceed, []byte("done")))

	var states []model.TaskState
	timeout := time.After(time.Second)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				assert.Equal(t, []model.TaskState{model.TaskRunning, model.TaskSucceed}, states)
				return
			}
			states = append(states, evt.State)
		case <-timeout:
			t.Fatal("WatchTaskUpdates did not close the channel within timeout")
		}
	}
}

func TestWaitForSession_CancellationReturnsCtxErr(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = s.WaitForSession(waitCtx, sess.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForSession_WakesOnClose(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var waitErr error
	go func() {
		defer wg.Done()
		waitErr = s.WaitForSession(context.Background(), sess.ID)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.CloseSession(ctx, sess.ID))

	wg.Wait()
	assert.NoError(t, waitErr)
}

func TestPopPendingTask_FIFOAcrossStorage(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)
	first, err := s.CreateTask(ctx, sess.ID, []byte("1"))
	require.NoError(t, err)
	second, err := s.CreateTask(ctx, sess.ID, []byte("2"))
	require.NoError(t, err)

	id, ok := s.PopPendingTask(sess.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, id)

	id, ok = s.PopPendingTask(sess.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, id)

	_, ok = s.PopPendingTask(sess.ID)
	assert.False(t, ok)
}

func TestSnapshot_SkipsFullySatisfiedSessionsAndBoundExecutors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	full, err := s.CreateSession(ctx, "echo", nil, 0)
	require.NoError(t, err)
	needy, err := s.CreateSession(ctx, "echo", nil, 2)
	require.NoError(t, err)

	idle, err := s.RegisterExecutor(ctx, "echo", nil)
	require.NoError(t, err)
	bound, err := s.RegisterExecutor(ctx, "echo", nil)
	require.NoError(t, err)
	require.NoError(t, s.BindSession(ctx, bound.ID, needy.ID))

	snap := s.Snapshot()

	var sessionIDs []model.SessionID
	for _, ss := range snap.Sessions {
		sessionIDs = append(sessionIDs, ss.ID)
	}
	assert.Contains(t, sessionIDs, needy.ID)
	assert.NotContains(t, sessionIDs, full.ID)

	var execIDs []model.ExecutorID
	for _, ex := range snap.Executors {
		execIDs = append(execIDs, ex.ID)
	}
	assert.Contains(t, execIDs, idle.ID)
	assert.NotContains(t, execIDs, bound.ID)
}

func TestRegisterExecutor_CarriesApplication(t *testing.T) {
	s := newTestStorage(t)
	x, err := s.RegisterExecutor(context.Background(), "render", map[string]string{"gpu": "1"})
	require.NoError(t, err)
	assert.Equal(t, "render", x.Application)
	assert.Equal(t, model.ExecutorIdle, x.State)
}

func TestClose_WakesAllWaiters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "echo", nil, 1)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.WaitForSession(context.Background(), sess.ID)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-errCh:
		assert.True(t, apperrors.Is(err, apperrors.Uninitialized))
	case <-time.After(time.Second):
		t.Fatal("WaitForSession did not wake up after Close")
	}
}
