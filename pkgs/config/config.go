// Package config loads do2json settings from a .env file and DO2JSON_*
// environment variables. Command-line flags override what is loaded here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aledsdavies/do2json/pkgs/errors"
	"github.com/aledsdavies/do2json/pkgs/execution"
)

const (
	EnvDebugger        = "DO2JSON_DEBUGGER"
	EnvDump            = "DO2JSON_DUMP"
	EnvDepth           = "DO2JSON_DEPTH"
	EnvCount           = "DO2JSON_COUNT"
	EnvCommandTemplate = "DO2JSON_COMMAND_TEMPLATE"
	EnvTimeout         = "DO2JSON_TIMEOUT"
	EnvDebug           = "DO2JSON_DEBUG"
	EnvCacheSize       = "DO2JSON_CACHE_SIZE"
	EnvLogFile         = "DO2JSON_LOG_FILE"
	EnvRetries         = "DO2JSON_RETRIES"
	EnvRetryDelay      = "DO2JSON_RETRY_DELAY"
)

const DefaultTimeout = 2 * time.Minute

type Config struct {
	Debugger        string
	Dump            string
	Depth           int
	Count           int
	CommandTemplate string
	Timeout         time.Duration
	Debug           bool
	CacheSize       int
	LogFile         string
	Retries         int // attempts per command, 1 = no retry
	RetryDelay      time.Duration
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Debugger:   execution.DefaultDebugger,
		Depth:      execution.DefaultDepth,
		Count:      execution.DefaultCount,
		Timeout:    DefaultTimeout,
		CacheSize:  execution.DefaultCacheSize,
		Retries:    1,
		RetryDelay: execution.DefaultRetryDelay,
	}
}

// Load reads the given env files (".env" in the working directory when none
// are named, ignored if missing) and then the process environment. Variables
// already set in the environment win over file entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to load %s", strings.Join(files, ", ")), err)
	}

	cfg := Default()
	cfg.Debugger = firstNonEmpty(env(EnvDebugger), cfg.Debugger)
	cfg.Dump = env(EnvDump)
	cfg.CommandTemplate = env(EnvCommandTemplate)
	cfg.LogFile = env(EnvLogFile)

	var err error
	if cfg.Depth, err = intVar(EnvDepth, cfg.Depth); err != nil {
		return nil, err
	}
	if cfg.Count, err = intVar(EnvCount, cfg.Count); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = intVar(EnvCacheSize, cfg.CacheSize); err != nil {
		return nil, err
	}
	if cfg.Retries, err = intVar(EnvRetries, cfg.Retries); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = durationVar(EnvTimeout, cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = durationVar(EnvRetryDelay, cfg.RetryDelay); err != nil {
		return nil, err
	}
	if cfg.Debug, err = boolVar(EnvDebug, cfg.Debug); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings no query could run with
func (c *Config) Validate() error {
	if c.Depth < 0 {
		return errors.NewConfigError(fmt.Sprintf("depth must not be negative, got %d", c.Depth), nil)
	}
	if c.Count < 0 {
		return errors.NewConfigError(fmt.Sprintf("count must not be negative, got %d", c.Count), nil)
	}
	if c.Timeout < 0 {
		return errors.NewConfigError(fmt.Sprintf("timeout must not be negative, got %s", c.Timeout), nil)
	}
	if c.CacheSize < 0 {
		return errors.NewConfigError(fmt.Sprintf("cache size must not be negative, got %d", c.CacheSize), nil)
	}
	if c.Retries < 1 {
		return errors.NewConfigError(fmt.Sprintf("retries must be at least 1, got %d", c.Retries), nil)
	}
	if c.RetryDelay < 0 {
		return errors.NewConfigError(fmt.Sprintf("retry delay must not be negative, got %s", c.RetryDelay), nil)
	}
	if _, err := execution.ParseTemplate(c.CommandTemplate); err != nil {
		return errors.NewConfigError("invalid command template", err)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intVar(key string, fallback int) (int, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewConfigError(fmt.Sprintf("%s must be an integer, got %q", key, raw), err)
	}
	return v, nil
}

// durationVar accepts Go durations ("90s", "2m") or a bare number of seconds
func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.NewConfigError(fmt.Sprintf("%s must be a duration, got %q", key, raw), err)
	}
	return d, nil
}

func boolVar(key string, fallback bool) (bool, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewConfigError(fmt.Sprintf("%s must be a boolean, got %q", key, raw), err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
