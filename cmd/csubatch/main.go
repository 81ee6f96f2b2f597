package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/crabzie/csubatch/internal/config"
	"github.com/crabzie/csubatch/internal/engine"
	"github.com/crabzie/csubatch/internal/job"
	"github.com/crabzie/csubatch/internal/policy"
	"github.com/crabzie/csubatch/internal/telemetry"
	"github.com/crabzie/csubatch/internal/telemetry/promexport"
)

// _shutdownPeriod is time to wait for in-flight work before force closing.
const _shutdownPeriod = 3 * time.Second

func main() {
	rootCtx, rootCtxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCtxCancel()

	cfg, v, err := config.Load(os.Getenv("CSUBATCH_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, atomicLevel, err := telemetry.BuildLogger(cfg.Logger.Level, cfg.Logger.Development, cfg.Logger.Encoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if v != nil {
		config.WatchLevel(v, func(level string) {
			if err := telemetry.SetLevel(atomicLevel, level); err != nil {
				logger.Warn("failed to apply new log level", zap.String("level", level), zap.Error(err))
			} else {
				logger.Info("log level updated", zap.String("level", level))
			}
		})
	}

	sink := telemetry.NewZapSink(logger)

	initialPolicy, ok := policy.ParseName(cfg.Engine.Policy)
	if !ok {
		logger.Warn("unrecognized initial policy, defaulting to FCFS", zap.String("configured", cfg.Engine.Policy))
	}

	eng := engine.New(engine.Config{
		CPUTimeSlice:   cfg.Engine.CPUTimeSlice,
		SchedulerTick:  cfg.Engine.SchedulerTick(),
		DispatcherIdle: cfg.Engine.DispatcherIdle(),
		InitialPolicy:  initialPolicy,
	}, sink)

	eng.Subscribe(stateLogger{logger: logger})
	eng.Start()
	logger.Info("engine started", zap.String("policy", eng.Policy().String()))

	reg := prometheus.NewRegistry()
	exporter := promexport.New(eng.Metrics(), reg)
	httpServer := &http.Server{Addr: ":9477", Handler: metricsMux(exporter, reg)}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go demoSubmitter(rootCtx, eng, logger)

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownPeriod)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	eng.Stop()
	logger.Info("shutdown complete")
}

func metricsMux(exporter *promexport.Exporter, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler(reg))
	return mux
}

// demoSubmitter feeds a handful of synthetic jobs into the engine so the
// binary has something to schedule out of the box; a real deployment
// replaces this with the (out-of-scope) interactive CLI shell.
func demoSubmitter(ctx context.Context, eng *engine.Engine, logger *zap.Logger) {
	jobs := []struct {
		name     string
		cpuTime  int
		priority int
	}{
		{"build", 5, 1},
		{"lint", 3, 2},
		{"deploy", 7, 3},
	}

	for _, j := range jobs {
		// Suffix with a short UUID so repeated demo runs against the same
		// engine don't collide on name and overwrite each other's metrics
		// record (internal/metrics keys records by job name).
		name := j.name + "-" + uuid.NewString()[:8]
		if err := eng.Submit(name, j.cpuTime, j.priority); err != nil {
			logger.Warn("demo submission rejected", zap.String("job", name), zap.Error(err))
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// stateLogger is an Observer that logs every job state transition at info
// level, standing in for the (out-of-scope) UI/diagnostics consumer.
type stateLogger struct {
	logger *zap.Logger
}

func (s stateLogger) OnJobStateChanged(event job.Event) {
	s.logger.Info("job state changed",
		zap.String("job", event.Job.Name()),
		zap.String("from", event.OldStatus.String()),
		zap.String("to", event.NewStatus.String()),
		zap.String("source", event.Source),
	)
}
