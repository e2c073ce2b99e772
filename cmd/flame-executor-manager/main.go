// Command flame-executor-manager is a reference executor process: it
// registers with a flame-session-manager, then loops
// bind -> bind_completed -> {launch_task -> complete_task}* -> unbind ->
// unbind_completed, running each task's Input through the configured
// Application's command as a subprocess. The shim invocation step is
// external to the session/executor coordination core (spec §1's
// Out-of-scope note); this binary is a minimal reference consumer of
// that core's HTTP surface, not part of the core itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/pkg/flameclient"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to flame-conf.yaml")
		application = flag.String("application", "", "application name to run (default: first configured)")
	)
	flag.Parse()

	ctx, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: ctx.Logging.Level, Format: ctx.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	appName := *application
	if appName == "" && len(ctx.Applications) > 0 {
		appName = ctx.Applications[0].Name
	}
	app, ok := ctx.Application(appName)
	if !ok {
		log.Fatal("unknown application", zap.String("application", appName))
	}

	endpoint := config.Endpoint(ctx)
	client := flameclient.New(endpoint)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec, err := client.RegisterExecutor(rootCtx, app.Name, parseSlot(ctx.Slot))
	if err != nil {
		log.Fatal("failed to register executor", zap.Error(err))
	}
	log.Info("executor registered", zap.String("executor_id", exec.ID), zap.String("application", app.Name))

	runExecutorLoop(rootCtx, client, exec.ID, app, log)
	log.Info("flame-executor-manager stopped")
}

// parseSlot is a placeholder slot-string parser; spec §6 documents slot
// as an opaque "cpu=1,mem=1g" style string and leaves its interpretation
// to the shim, so this binary reports it back to the server unparsed.
func parseSlot(slot string) map[string]string {
	return map[string]string{"slot": slot}
}
