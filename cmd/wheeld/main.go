// Command wheeld runs a standalone, shardable timeout scheduler behind a RESP command port,
// with Prometheus metrics and structured logging — an operational demo/ops binary for
// pkg/wheel and pkg/scheduler, in the same shape the teacher lineage's cmd/kiwi binary wires
// up its own storage engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nobletooth/timewheel/pkg/port"
	"github.com/nobletooth/timewheel/pkg/scheduler"
	"github.com/nobletooth/timewheel/pkg/utils"
	"github.com/nobletooth/timewheel/pkg/wheel"
)

var (
	metricsAddress = flag.String("metrics_address", "0.0.0.0:9390", "The ip:port to serve /metrics on.")
	shardCount     = flag.Int("shard_count", 1, "Number of engine shards. 1 disables sharding.")
	poolEnabled    = flag.Bool("pool_enabled", true, "Reuse records via a sync.Pool instead of the garbage collector.")
	minimumVersion = flag.String("minimum_compatible_version", "v0.0.0", "Refuse to start below this build version.")
)

func main() {
	flag.Parse()
	utils.InitLogging()

	if !utils.CompatibleWith(*minimumVersion) {
		slog.Error("Running build is older than the minimum compatible version.",
			"version", utils.Version, "minimum", *minimumVersion)
		os.Exit(1)
	}
	slog.Info("Starting wheeld.", "version", utils.Version, "commit", utils.Commit)

	sched := buildScheduler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForShutdownSignal(cancel)

	go serveMetrics()

	if err := port.RunServer(ctx, sched); err != nil {
		slog.Error("RESP server exited with error.", "error", err)
		os.Exit(1)
	}
	slog.Info("wheeld shut down cleanly.")
}

// buildScheduler wires a single, unsharded scheduler.Scheduler with a Prometheus observer
// attached to its underlying engine. A shardCount > 1 only logs a warning.
//
// TODO: thread shardCount through to port.RunServer once pkg/port grows a Sharded-backed
// handler; today the RESP front door only drives a single, unsharded Scheduler.
func buildScheduler() *scheduler.Scheduler {
	if *shardCount > 1 {
		slog.Warn("Ignoring shard_count > 1: the RESP front door only drives a single shard today.",
			"shard_count", *shardCount)
	}
	sched := scheduler.New(*poolEnabled)
	sched.SetObserver(wheel.NewPrometheusObserver(prometheus.DefaultRegisterer, "wheeld"))
	return sched
}

func serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Serving metrics.", "address", *metricsAddress)
	if err := http.ListenAndServe(*metricsAddress, mux); err != nil {
		slog.Error("Metrics server exited with error.", "error", err)
	}
}

func waitForShutdownSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Received shutdown signal.", "signal", fmt.Sprintf("%v", sig))
	cancel()
}
