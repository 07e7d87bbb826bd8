// Package config resolves process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultPort is used when API_PORT is unset or not a valid TCP port.
	DefaultPort = 3001

	// DefaultEnvFile is loaded from the working directory when present.
	DefaultEnvFile = ".env"

	envPort     = "API_PORT"
	envLogLevel = "LOG_LEVEL"
	envFileKey  = "env file"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port     int
	LogLevel zapcore.Level
}

// Warning describes an environment value that was rejected in favour of a default.
type Warning struct {
	Key    string
	Value  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s=%q ignored: %s", w.Key, w.Value, w.Reason)
}

// Addr returns the listen address for the configured port on all interfaces.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load reads DefaultEnvFile, if it exists, and then resolves Config from the
// process environment. Values already set in the environment take precedence
// over the file. An unreadable file and rejected values are reported as
// warnings so the caller can log them once logging is configured.
func Load() (Config, []Warning) {
	var warnings []Warning
	if err := loadEnvFile(DefaultEnvFile); err != nil {
		warnings = append(warnings, Warning{Key: envFileKey, Value: DefaultEnvFile, Reason: err.Error()})
	}
	cfg, envWarnings := FromLookup(os.LookupEnv)
	return cfg, append(warnings, envWarnings...)
}

// FromLookup resolves Config using lookup instead of the process environment.
func FromLookup(lookup func(string) (string, bool)) (Config, []Warning) {
	var warnings []Warning
	cfg := Config{Port: DefaultPort, LogLevel: zapcore.InfoLevel}

	if raw, ok := lookup(envPort); ok && strings.TrimSpace(raw) != "" {
		port, err := parsePort(raw)
		if err != nil {
			warnings = append(warnings, Warning{Key: envPort, Value: raw, Reason: err.Error()})
		} else {
			cfg.Port = port
		}
	}

	if raw, ok := lookup(envLogLevel); ok && strings.TrimSpace(raw) != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil || lvl > zapcore.ErrorLevel {
			warnings = append(warnings, Warning{Key: envLogLevel, Value: raw, Reason: "expected debug, info, warn or error"})
		} else {
			cfg.LogLevel = lvl
		}
	}

	return cfg, warnings
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}
