// Package config loads binding defaults from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	session "github.com/goliatone/go-session-state"
)

// Config controls process-wide binding defaults.
type Config struct {
	SuppressDiagnostics bool   `env:"SESSION_SUPPRESS_DIAGNOSTICS"`
	StrictDiagnostics   bool   `env:"SESSION_STRICT_DIAGNOSTICS"`
	DefaultEvaluator    string `env:"SESSION_DEFAULT_EVALUATOR" envDefault:"expr"`
	ActivityChannel     string `env:"SESSION_ACTIVITY_CHANNEL"`
	StorePath           string `env:"SESSION_STORE_PATH"        envDefault:"sessions.db"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses values from environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Options maps the configuration onto bind options. The evaluator shares
// cache and registry, either of which may be nil.
func (c Config) Options(cache session.ProgramCache, registry *session.FunctionRegistry) ([]session.Option, error) {
	evaluator, err := session.EvaluatorByName(c.DefaultEvaluator, cache, registry)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithSuppressDiagnostics(c.SuppressDiagnostics),
		session.WithStrictDiagnostics(c.StrictDiagnostics),
		session.WithEvaluator(evaluator),
	}
	if c.ActivityChannel != "" {
		opts = append(opts, session.WithActivityChannel(c.ActivityChannel))
	}
	return opts, nil
}
