// Command keyspaced runs the in-memory keyspace server described by
// spec.md: a TCP listener speaking a RESP-style line protocol over a
// shared typed keyspace, with blocking BLPOP/XREAD support.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyspaced/internal/config"
	"keyspaced/internal/executor"
	"keyspaced/internal/log"
	"keyspaced/internal/metrics"
	"keyspaced/internal/server"
)

func newEngine(cfg *config.Config) *executor.Engine {
	return executor.NewEngine(cfg.Limits.ListNotifyBuffer, cfg.Limits.StreamNotifyBuffer)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to server.toml (defaults used if unset)")
	versioninfo.AddFlag(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyspaced: config error: %v\n", err)
		os.Exit(1)
	}

	var logBackend *log.Backend
	if cfg.Logging.Disable {
		logBackend, err = log.New(nil, "CRITICAL")
	} else {
		logBackend, err = log.New(os.Stdout, cfg.Logging.Level)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyspaced: logging error: %v\n", err)
		os.Exit(1)
	}
	logger := logBackend.GetLogger("main")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	eng := newEngine(cfg)

	srv, err := server.New(cfg.Server.ListenAddress, eng, logBackend, m)
	if err != nil {
		logger.Criticalf("failed to bind %s: %v", cfg.Server.ListenAddress, err)
		os.Exit(1)
	}

	if cfg.Server.MetricsAddress != "" {
		go serveMetrics(cfg.Server.MetricsAddress, reg, logger)
	}

	sampleDone := make(chan struct{})
	go sampleGauges(eng, m, sampleDone)

	srv.Accept()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Notice("shutting down")
	close(sampleDone)
	srv.Shutdown()
}

func sampleGauges(eng *executor.Engine, m *metrics.Metrics, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.KeysGauge.Set(float64(eng.KeyCount()))
			listPop, streamRead := eng.WaiterCounts()
			m.WaitersGauge.WithLabelValues("list_pop").Set(float64(listPop))
			m.WaitersGauge.WithLabelValues("stream_read").Set(float64(streamRead))
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger interface {
	Errorf(format string, args ...interface{})
}) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics listener stopped: %v", err)
	}
}
