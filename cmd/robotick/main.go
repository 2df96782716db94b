// Package main wires the robotick engine CLI entrypoint.
package main

//nolint:depguard // main wires project-internal modules and zap logging
import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"robotick/internal/buildinfo"
	"robotick/pkg/engine"
	"robotick/pkg/model"
	"robotick/pkg/telemetry"
	"robotick/pkg/telemetryhttp"
	"robotick/pkg/typeregistry"
)

const (
	defaultConfigPath = "/etc/robotick/config.yaml"
	defaultLogLevel   = "info"
	modeRun           = "run"
	modeDryRun        = "dry-run"
	modeDescribe      = "describe"

	exitCodeSuccess      = 0
	exitCodeRuntimeError = 1
	exitCodeParseError   = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], defaultRunDeps(), os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

type runDeps struct {
	newLogger      func(level string) (*zap.Logger, error)
	newRegistry    func() *typeregistry.Registry
	buildModel     func(reg *typeregistry.Registry, tickRateHz float64) (*model.Model, error)
	serveTelemetry func(ctx context.Context, logger *zap.Logger, bind string, eng *engine.Engine) (shutdown func())
}

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger:      newLogger,
		newRegistry:    defaultRegistryFactory,
		buildModel:     buildDemoModel,
		serveTelemetry: serveTelemetryHTTP,
	}
}

func run(ctx context.Context, args []string, deps runDeps, stderr io.Writer) int {
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

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return exitCodeRuntimeError
	}

	info := buildinfo.Current()
	logger.Info("starting robotick",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
		zap.String("configPath", opts.configPath),
		zap.String("mode", opts.mode),
		zap.Float64("tickRateHz", cfg.Engine.TickRateHz),
		zap.String("platformClass", string(cfg.Platform.Class)),
		zap.Uint64("maxBlackboardsBytes", cfg.Platform.MaxBlackboardsBytes),
	)

	reg := deps.newRegistry()
	m, err := deps.buildModel(reg, cfg.Engine.TickRateHz)
	if err != nil {
		logger.Error("failed to build model", zap.Error(err))
		return exitCodeRuntimeError
	}

	eng := engine.New(reg, logger)
	if err := eng.Load(m); err != nil {
		logger.Error("failed to load model", zap.Error(err))
		return exitCodeRuntimeError
	}

	if used := uint64(eng.BlackboardBytesUsed()); used > cfg.Platform.MaxBlackboardsBytes {
		logger.Warn("blackboard usage exceeds the configured platform budget",
			zap.Uint64("usedBytes", used),
			zap.Uint64("budgetBytes", cfg.Platform.MaxBlackboardsBytes),
		)
	}

	if opts.mode == modeDescribe {
		return describe(eng, stderr)
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var shutdownTelemetry func()
	if deps.serveTelemetry != nil {
		shutdownTelemetry = deps.serveTelemetry(runCtx, logger, cfg.HTTP.Bind, eng)
		if shutdownTelemetry != nil {
			defer shutdownTelemetry()
		}
	}

	if opts.mode == modeDryRun {
		logger.Info("dry-run: model loaded successfully, not starting the tick loop")
		return exitCodeSuccess
	}

	runErr := eng.Run(runCtx)
	if runErr != nil {
		logger.Error("engine run failed", zap.Error(runErr))
		return exitCodeRuntimeError
	}

	return exitCodeSuccess
}

func describe(eng *engine.Engine, stderr io.Writer) int {
	rows, err := telemetry.Walk(eng)
	if err != nil {
		fmt.Fprintf(stderr, "failed to walk loaded model: %v\n", err)
		return exitCodeRuntimeError
	}
	if err := telemetry.PrintConsoleTable(os.Stdout, rows); err != nil {
		fmt.Fprintf(stderr, "failed to print telemetry table: %v\n", err)
		return exitCodeRuntimeError
	}
	return exitCodeSuccess
}

func defaultRegistryFactory() *typeregistry.Registry {
	reg := typeregistry.NewRegistry()
	typeregistry.RegisterPrimitives(reg)
	return reg
}

// serveTelemetryHTTP mounts the optional status/metrics reference
// consumers on bind and returns a function that shuts the server down.
// A listen failure is logged and otherwise non-fatal, matching the
// teacher's treatment of best-effort auxiliary subsystems.
func serveTelemetryHTTP(ctx context.Context, logger *zap.Logger, bind string, eng *engine.Engine) func() {
	mux := http.NewServeMux()
	mux.Handle("/status", telemetryhttp.NewStatusHandler(eng))
	mux.Handle("/metrics", telemetryhttp.NewMetricsExporter(eng))

	srv := &http.Server{Addr: bind, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("telemetry HTTP server stopped", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	return func() { _ = srv.Close() }
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger, nil
}

type options struct {
	configPath string
	logLevel   string
	mode       string
}

func parseArgs(args []string) (options, error) {
	var opts options

	flagSet := flag.NewFlagSet("robotick", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the runtime configuration file")
	flagSet.StringVar(&opts.logLevel, "log-level", defaultLogLevel, "Structured log level (debug, info, warn, error)")
	flagSet.StringVar(&opts.mode, "mode", modeRun, "Execution mode to use (run, dry-run, describe)")

	if err := flagSet.Parse(args); err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	opts.mode = strings.ToLower(strings.TrimSpace(opts.mode))
	if opts.mode == "" {
		opts.mode = modeRun
	}
	if !isValidMode(opts.mode) {
		return options{}, fmt.Errorf("%w: %q (supported: %s, %s, %s)", errUnsupportedMode, opts.mode, modeRun, modeDryRun, modeDescribe)
	}

	opts.logLevel = strings.TrimSpace(opts.logLevel)
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}

	opts.configPath = strings.TrimSpace(opts.configPath)
	if opts.configPath == "" {
		opts.configPath = defaultConfigPath
	}

	return opts, nil
}

var (
	errInvalidLogLevel = errors.New("invalid log level")
	errUnsupportedMode = errors.New("unsupported mode provided")
)

func isValidMode(mode string) bool {
	switch mode {
	case modeRun, modeDryRun, modeDescribe:
		return true
	default:
		return false
	}
}
