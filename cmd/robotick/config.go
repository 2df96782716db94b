package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"robotick/pkg/platform"
)

const (
	envTickRateHz    = "ROBOTICK_TICK_RATE_HZ"
	envHTTPBind      = "ROBOTICK_HTTP_ADDR"
	envPlatformClass = "ROBOTICK_PLATFORM_CLASS"

	defaultTickRateHz = 50.0
	defaultHTTPBind   = ":8072"
)

// runtimeConfig is the resolved configuration for one engine run, merged
// from defaults, an optional YAML file, and environment overrides, in
// that order — the same three-tier precedence cmd/shaper's config.go
// uses for its runtimeConfig.
type runtimeConfig struct {
	Engine   engineConfig
	HTTP     httpConfig
	Platform platform.Profile
}

type engineConfig struct {
	TickRateHz float64
}

type httpConfig struct {
	Bind string
}

type fileConfig struct {
	Engine   engineFileConfig   `yaml:"engine"`
	HTTP     httpFileConfig     `yaml:"http"`
	Platform platformFileConfig `yaml:"platform"`
}

type engineFileConfig struct {
	TickRateHz *float64 `yaml:"tickRateHz"`
}

type httpFileConfig struct {
	Bind *string `yaml:"bind"`
}

type platformFileConfig struct {
	Class               *string `yaml:"class"`
	MaxBlackboardsBytes *uint64 `yaml:"maxBlackboardsBytes"`
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Engine:   engineConfig{TickRateHz: defaultTickRateHz},
		HTTP:     httpConfig{Bind: defaultHTTPBind},
		Platform: platform.DefaultProfile(platform.ClassDesktop),
	}
}

func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		data, err := os.ReadFile(trimmed)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return runtimeConfig{}, fmt.Errorf("read config file %q: %w", trimmed, err)
			}
		} else {
			var fileCfg fileConfig
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return runtimeConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
			}
			mergeEngineConfig(&cfg.Engine, fileCfg.Engine)
			mergeHTTPConfig(&cfg.HTTP, fileCfg.HTTP)
			mergePlatformConfig(&cfg.Platform, fileCfg.Platform)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Engine.TickRateHz <= 0 {
		cfg.Engine.TickRateHz = defaultTickRateHz
	}
	if strings.TrimSpace(cfg.HTTP.Bind) == "" {
		cfg.HTTP.Bind = defaultHTTPBind
	}

	return cfg, nil
}

func mergeEngineConfig(dst *engineConfig, src engineFileConfig) {
	if src.TickRateHz != nil {
		dst.TickRateHz = *src.TickRateHz
	}
}

func mergeHTTPConfig(dst *httpConfig, src httpFileConfig) {
	if src.Bind != nil {
		dst.Bind = strings.TrimSpace(*src.Bind)
	}
}

func mergePlatformConfig(dst *platform.Profile, src platformFileConfig) {
	if src.Class != nil {
		*dst = platform.DefaultProfile(platform.Class(strings.TrimSpace(*src.Class)))
	}
	if src.MaxBlackboardsBytes != nil {
		dst.MaxBlackboardsBytes = *src.MaxBlackboardsBytes
	}
}

func applyEnvOverrides(cfg *runtimeConfig) {
	cfg.Engine.TickRateHz = envFloat(envTickRateHz, cfg.Engine.TickRateHz)
	cfg.HTTP.Bind = envString(envHTTPBind, cfg.HTTP.Bind)
	if class, ok := lookupEnv(envPlatformClass); ok && strings.TrimSpace(class) != "" {
		maxBytes := cfg.Platform.MaxBlackboardsBytes
		cfg.Platform = platform.DefaultProfile(platform.Class(strings.TrimSpace(class)))
		cfg.Platform.MaxBlackboardsBytes = maxBytes
	}
}

var lookupEnv = os.LookupEnv

func envFloat(key string, fallback float64) float64 {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envString(key, fallback string) string {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
