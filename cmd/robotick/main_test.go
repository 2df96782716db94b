package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"go.uber.org/zap"

	"robotick/pkg/engine"
	"robotick/pkg/model"
	"robotick/pkg/typeregistry"
)

var (
	errStubLoggerBoom = errors.New("logger failure")
	errStubBuildModel = errors.New("build model failed")
)

func TestParseArgsDefaults(t *testing.T) {
	t.Parallel()

	opts, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}
	if opts.configPath != defaultConfigPath {
		t.Fatalf("expected default config path, got %q", opts.configPath)
	}
	if opts.logLevel != defaultLogLevel {
		t.Fatalf("expected default log level, got %q", opts.logLevel)
	}
	if opts.mode != modeRun {
		t.Fatalf("expected default mode, got %q", opts.mode)
	}
}

func TestParseArgsValidCustomizations(t *testing.T) {
	t.Parallel()

	args := []string{"--config", "./testdata/config.yaml", "--log-level", "debug", "--mode", "describe"}
	opts, err := parseArgs(args)
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}
	if opts.configPath != "./testdata/config.yaml" {
		t.Fatalf("unexpected config path: %q", opts.configPath)
	}
	if opts.logLevel != "debug" {
		t.Fatalf("unexpected log level: %q", opts.logLevel)
	}
	if opts.mode != modeDescribe {
		t.Fatalf("unexpected mode: %q", opts.mode)
	}
}

func TestParseArgsRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	_, err := parseArgs([]string{"--mode", "observe"})
	if err == nil {
		t.Fatal("expected error for unsupported mode")
	}
	if !errors.Is(err, errUnsupportedMode) {
		t.Fatalf("expected errUnsupportedMode, got %v", err)
	}
}

func TestNewLoggerRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := newLogger("not-a-level")
	if err == nil {
		t.Fatal("expected error when creating logger with invalid level")
	}
}

func TestNewLoggerAppliesLevel(t *testing.T) {
	t.Parallel()

	logger, err := newLogger("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func stubRunDeps() runDeps {
	return runDeps{
		newLogger:   func(string) (*zap.Logger, error) { return zap.NewNop(), nil },
		newRegistry: defaultRegistryFactory,
		buildModel:  buildDemoModel,
		serveTelemetry: func(context.Context, *zap.Logger, string, *engine.Engine) func() {
			return func() {}
		},
	}
}

func TestRunDescribeModePrintsTableAndSucceeds(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--mode", "describe"}, stubRunDeps(), &stderr)
	if code != exitCodeSuccess {
		t.Fatalf("expected success exit code, got %d; stderr: %s", code, stderr.String())
	}
}

func TestRunDryRunModeDoesNotBlock(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--mode", "dry-run"}, stubRunDeps(), &stderr)
	if code != exitCodeSuccess {
		t.Fatalf("expected success exit code, got %d; stderr: %s", code, stderr.String())
	}
}

func TestRunReturnsParseErrorOnBadFlags(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--mode", "bogus"}, stubRunDeps(), &stderr)
	if code != exitCodeParseError {
		t.Fatalf("expected parse error exit code, got %d", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected an error message on stderr")
	}
}

func TestRunReturnsRuntimeErrorWhenLoggerFails(t *testing.T) {
	t.Parallel()

	deps := stubRunDeps()
	deps.newLogger = func(string) (*zap.Logger, error) { return nil, errStubLoggerBoom }

	code := run(context.Background(), nil, deps, io.Discard)
	if code != exitCodeRuntimeError {
		t.Fatalf("expected runtime error exit code, got %d", code)
	}
}

func TestRunReturnsRuntimeErrorWhenModelBuildFails(t *testing.T) {
	t.Parallel()

	deps := stubRunDeps()
	deps.buildModel = func(*typeregistry.Registry, float64) (*model.Model, error) {
		return nil, errStubBuildModel
	}

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--mode", "describe"}, deps, &stderr)
	if code != exitCodeRuntimeError {
		t.Fatalf("expected runtime error exit code, got %d", code)
	}
}

func TestIsValidMode(t *testing.T) {
	t.Parallel()

	for _, m := range []string{modeRun, modeDryRun, modeDescribe} {
		if !isValidMode(m) {
			t.Fatalf("expected %q to be a valid mode", m)
		}
	}
	if isValidMode("bogus") {
		t.Fatal("expected bogus mode to be invalid")
	}
}
