package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/pkg/flameclient"
)

// runExecutorLoop drives one executor through repeated bind/run/unbind
// cycles until ctx is cancelled.
func runExecutorLoop(ctx context.Context, c *flameclient.Client, execID string, app config.Application, log *logger.Logger) {
	log = log.With(zap.String("executor_id", execID))

	for ctx.Err() == nil {
		sess, err := c.Bind(ctx, execID)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			log.Error("bind failed", zap.Error(err))
			continue
		}
		log.Info("bound to session", zap.String("session_id", sess.ID))

		if err := c.BindCompleted(ctx, execID); err != nil {
			log.Error("bind_completed failed", zap.Error(err))
			continue
		}

		runSession(ctx, c, execID, app, log)
	}
}

// runSession pulls and runs tasks for the session the executor is
// currently bound to, until the server unblocks it (session drained) or
// ctx is cancelled, then unbinds.
func runSession(ctx context.Context, c *flameclient.Client, execID string, app config.Application, log *logger.Logger) {
	for ctx.Err() == nil {
		task, err := c.LaunchTask(ctx, execID)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			log.Error("launch_task failed", zap.Error(err))
			break
		}
		if task == nil {
			break
		}

		output, runErr := runShim(ctx, app, task.Input)
		succeeded := runErr == nil
		if runErr != nil {
			log.Error("shim invocation failed", zap.String("task_id", task.ID), zap.Error(runErr))
		}

		if err := c.CompleteTask(ctx, execID, task.ID, succeeded, output); err != nil {
			log.Error("complete_task failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	if err := c.Unbind(ctx, execID); err != nil {
		log.Error("unbind failed", zap.Error(err))
		return
	}
	if err := c.UnbindCompleted(ctx, execID); err != nil {
		log.Error("unbind_completed failed", zap.Error(err))
	}
}

// runShim executes app's command as a subprocess, feeding it input on
// stdin and returning its stdout as the task's output.
func runShim(ctx context.Context, app config.Application, input []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, app.Command, app.Arguments...)
	if app.WorkingDirectory != "" {
		cmd.Dir = app.WorkingDirectory
	}
	if len(app.Environments) > 0 {
		cmd.Env = append(cmd.Env, app.Environments...)
	}
	cmd.Stdin = bytes.NewReader(input)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), err
	}
	return out.Bytes(), nil
}
