package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	RPCURL       string
	In           string
	Errors       string
	Deployment   Deployment
	Store        Store
	CursorName   string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadReplay merges .env, config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"errors":        "./data/decode_errors.jsonl",
		"cursor-name":   "replay",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		RPCURL:       v.GetString("rpc"),
		In:           v.GetString("in"),
		Errors:       v.GetString("errors"),
		Deployment:   loadDeployment(v),
		Store:        loadStore(v),
		CursorName:   v.GetString("cursor-name"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the replay command cannot run without.
func (c ReplayConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.In == "" {
		return fmt.Errorf("input path is required")
	}
	if c.Errors == "" {
		return fmt.Errorf("errors path is required")
	}
	return c.Deployment.Validate()
}
