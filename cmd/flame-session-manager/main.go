// Command flame-session-manager runs the Flame control plane: the HTTP
// gateway, the in-process storage facade, and the scheduler that binds
// executors to sessions.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GeauxEric/flame/internal/apperrors"
	"github.com/GeauxEric/flame/internal/config"
	"github.com/GeauxEric/flame/internal/engine"
	"github.com/GeauxEric/flame/internal/engine/memory"
	"github.com/GeauxEric/flame/internal/engine/sqlite"
	"github.com/GeauxEric/flame/internal/gateway/httpapi"
	"github.com/GeauxEric/flame/internal/logger"
	"github.com/GeauxEric/flame/internal/scheduler"
	"github.com/GeauxEric/flame/internal/storage"
	"github.com/GeauxEric/flame/internal/tracing"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to flame-conf.yaml (default $HOME/.flame/flame-conf.yaml)")
		dbPath     = flag.String("db", "flame.db", "sqlite database path, used when storage: sqlite")
		traceAddr  = flag.String("trace-endpoint", "", "OTLP HTTP collector endpoint, empty disables tracing")
		traceAll   = flag.Bool("trace-sample-all", false, "sample every trace instead of none")
	)
	flag.Parse()

	ctx, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  ctx.Logging.Level,
		Format: ctx.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	tracing.Init(tracing.Config{Endpoint: *traceAddr, Sample: *traceAll})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	log.Info("starting flame-session-manager", zap.String("name", ctx.Name), zap.String("storage", ctx.Storage))

	eng, err := openEngine(ctx.Storage, *dbPath)
	if err != nil {
		log.Fatal("failed to open engine", zap.Error(err))
	}
	defer eng.Close()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(rootCtx, eng, time.Now)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	sched := scheduler.New(store, scheduler.Config{PolicyName: ctx.Policy})
	if err := sched.Start(rootCtx); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	router := httpapi.NewRouter(store, ctx, log)
	addr := listenAddr(ctx.Endpoint)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(rootCtx)
	group.Go(func() error {
		log.Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	<-rootCtx.Done()
	log.Info("shutting down flame-session-manager")

	if err := group.Wait(); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}

func openEngine(storageKind, dbPath string) (engine.Engine, error) {
	switch storageKind {
	case "", "mem", "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(dbPath)
	default:
		return nil, apperrors.NewInvalidConfig("unknown storage backend: " + storageKind)
	}
}

// listenAddr extracts host:port from a configured endpoint URL
// ("http://0.0.0.0:8080" -> ":8080") for the local http.Server to bind.
func listenAddr(endpoint string) string {
	addr := endpoint
	if idx := strings.Index(addr, "://"); idx >= 0 {
		addr = addr[idx+3:]
	}
	if idx := strings.Index(addr, "/"); idx >= 0 {
		addr = addr[:idx]
	}
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		return addr[idx:]
	}
	return ":8080"
}
