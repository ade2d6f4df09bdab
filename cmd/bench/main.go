// Package main wires the benchmark CLI entrypoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rt-sensor-bench/internal/buildinfo"
	"rt-sensor-bench/pkg/backend/coop"
	"rt-sensor-bench/pkg/backend/threaded"
	"rt-sensor-bench/pkg/bench"
	"rt-sensor-bench/pkg/diag"
	benchmetrics "rt-sensor-bench/pkg/http/metrics"
	"rt-sensor-bench/pkg/http/status"
	"rt-sensor-bench/pkg/record"
	"rt-sensor-bench/pkg/report"
	"rt-sensor-bench/pkg/sysmon"
)

const (
	defaultLogLevel = "info"

	backendThreaded = "threaded"
	backendCoop     = "coop"
	backendBoth     = "both"

	exitCodeSuccess      = 0
	exitCodeRuntimeError = 1
	exitCodeParseError   = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], defaultRunDeps(), os.Stdout, os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

type runDeps struct {
	newLogger func(level string) (*zap.Logger, error)
	runners   func() []bench.Runner
}

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger: newLogger,
		runners:   defaultRunners,
	}
}

func defaultRunners() []bench.Runner {
	return []bench.Runner{threaded.New(), coop.New()}
}

func run(ctx context.Context, args []string, deps runDeps, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeParseError
	}

	logger, err := deps.newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to configure logger: %v\n", err)

		return exitCodeRuntimeError
	}

	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := bench.LoadConfig(opts.configPath)
	if err != nil {
		logger.Error("config load failed", zap.Error(err))

		return exitCodeRuntimeError
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))

		return exitCodeRuntimeError
	}

	info := buildinfo.Current()
	logger.Info("starting rt-sensor-bench",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
		zap.String("experiment", cfg.ExperimentName),
		zap.String("backend", opts.backend),
		zap.String("strategy", string(opts.strategy)),
		zap.Uint64("durationSecs", cfg.DurationSecs),
		zap.Uint64("sensorPeriodMs", cfg.SensorPeriodMS),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	live := startLiveEndpoints(runCtx, opts.metricsAddr, logger)

	code := exitCodeSuccess

	for _, runner := range deps.runners() {
		if !opts.wantsBackend(runner.Name()) {
			continue
		}

		if err := runOne(runCtx, runner, cfg, opts, live, stdout, logger); err != nil {
			logger.Error("experiment failed",
				zap.String("backend", runner.Name()),
				zap.Error(err),
			)

			code = exitCodeRuntimeError
		}
	}

	return code
}

func runOne(
	ctx context.Context,
	runner bench.Runner,
	cfg bench.ExperimentConfig,
	opts options,
	live *liveEndpoints,
	stdout io.Writer,
	logger *zap.Logger,
) error {
	recorder, err := record.New(opts.strategy)
	if err != nil {
		return err
	}

	runOpts := bench.Options{
		Logger:   logger,
		Strategy: opts.strategy,
		Recorder: recorder,
	}

	if live != nil {
		diagnostics := diag.New()
		runOpts.Diagnostics = diagnostics
		runOpts.Observer = live.exporter
		live.exporter.ObserveRun(runner.Name(), recorder, diagnostics)
		live.status.SetRun(cfg.ExperimentName, runner.Name(), recorder)

		defer live.status.Finish()
	}

	started := time.Now()

	recorder, err = runner.Run(ctx, cfg, runOpts)
	if err != nil {
		return err
	}

	logger.Info("run completed",
		zap.String("backend", runner.Name()),
		zap.Duration("elapsed", time.Since(started)),
	)

	summary := report.Summarize(strings.ToUpper(runner.Name()), recorder.Snapshot())
	if err := summary.Write(stdout); err != nil {
		return err
	}

	csvPath := filepath.Join(opts.csvDir, runner.Name()+"_results.csv")
	if err := recorder.ExportCSV(csvPath); err != nil {
		return fmt.Errorf("export %s: %w", csvPath, err)
	}

	logger.Info("results saved", zap.String("path", csvPath), zap.Int("records", recorder.Len()))

	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		trimmed = defaultLogLevel
	}

	parsed, err := zapcore.ParseLevel(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	// Stack traces add nothing to a benchmark log and distort its timing.
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}

type options struct {
	configPath  string
	logLevel    string
	backend     string
	strategy    record.Strategy
	csvDir      string
	metricsAddr string
}

func (o options) wantsBackend(name string) bool {
	return o.backend == backendBoth || o.backend == name
}

var (
	errInvalidLogLevel    = errors.New("invalid log level")
	errUnsupportedBackend = errors.New("unsupported backend")
)

func parseArgs(args []string) (options, error) {
	var opts options

	var strategy string

	flagSet := flag.NewFlagSet("bench", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", "", "Path to the experiment configuration file (YAML or TOML)")
	flagSet.StringVar(&opts.logLevel, "log-level", defaultLogLevel, "Structured log level (debug, info, warn, error)")
	flagSet.StringVar(&opts.backend, "backend", backendBoth, "Backend to run (threaded, coop, both)")
	flagSet.StringVar(&strategy, "strategy", string(record.StrategyExclusive), "Recorder sync strategy (exclusive, rwlock, atomic)")
	flagSet.StringVar(&opts.csvDir, "csv-dir", ".", "Directory for per-backend CSV result files")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "Bind address for live metrics and status endpoints (empty disables)")

	if err := flagSet.Parse(args); err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	opts.backend = strings.ToLower(strings.TrimSpace(opts.backend))
	if opts.backend == "" {
		opts.backend = backendBoth
	}

	switch opts.backend {
	case backendThreaded, backendCoop, backendBoth:
	default:
		return options{}, fmt.Errorf("%w: %q (supported: %s, %s, %s)",
			errUnsupportedBackend, opts.backend, backendThreaded, backendCoop, backendBoth)
	}

	parsed, err := record.ParseStrategy(strategy)
	if err != nil {
		return options{}, err
	}

	opts.strategy = parsed

	opts.logLevel = strings.TrimSpace(opts.logLevel)
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}

	opts.csvDir = strings.TrimSpace(opts.csvDir)
	if opts.csvDir == "" {
		opts.csvDir = "."
	}

	return opts, nil
}

// liveEndpoints bundles the optional HTTP surface for a running experiment.
type liveEndpoints struct {
	exporter *benchmetrics.Exporter
	status   *status.Handler
}

// startLiveEndpoints spins up the metrics and status endpoints plus the host
// CPU monitor. A nil return means the surface is disabled.
func startLiveEndpoints(ctx context.Context, addr string, logger *zap.Logger) *liveEndpoints {
	if strings.TrimSpace(addr) == "" {
		return nil
	}

	live := &liveEndpoints{
		exporter: benchmetrics.NewExporter(),
		status:   status.NewHandler(),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", live.exporter.Handler())
	mux.Handle("/status", live.status)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	monitor := sysmon.New("", time.Second)

	go func() {
		for reading := range monitor.Run(ctx) {
			if reading.Err != nil {
				logger.Debug("host cpu sample failed", zap.Error(reading.Err))

				continue
			}

			live.exporter.ObserveHostCPU(reading.Usage)
		}
	}()

	logger.Info("live endpoints listening", zap.String("addr", addr))

	return live
}
