package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Deployment names the contracts of one vault deployment.
type Deployment struct {
	Variant       string
	Vault         string
	FeeController string
	FeesCollector string
	// Factories holds "address=type:version" entries.
	Factories  []string
	SurgeHooks []string
}

// Store selects the entity store backend.
type Store struct {
	Kind       string
	PGDSN      string
	Migrations string
}

// IndexConfig holds configuration for the index command.
type IndexConfig struct {
	RPCURL        string
	FromBlock     uint64
	ToBlock       uint64
	Confirmations uint64
	BatchSize     uint64
	Deployment    Deployment
	Store         Store
	Archive       string
	CursorName    string
	MaxRetries    int
	RetryBackoff  time.Duration
	MetricsAddr   string
	LogLevel      string
}

// Load merges .env, config file, environment variables, and flags into IndexConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (IndexConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":    uint64(2000),
		"confirmations": uint64(12),
		"archive":       "./data/logs.jsonl",
		"cursor-name":   "default",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return IndexConfig{}, err
	}

	cfg := IndexConfig{
		RPCURL:        v.GetString("rpc"),
		FromBlock:     v.GetUint64("from"),
		ToBlock:       v.GetUint64("to"),
		Confirmations: v.GetUint64("confirmations"),
		BatchSize:     v.GetUint64("batch-size"),
		Deployment:    loadDeployment(v),
		Store:         loadStore(v),
		Archive:       v.GetString("archive"),
		CursorName:    v.GetString("cursor-name"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		MetricsAddr:   v.GetString("metrics-addr"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the index command cannot run without.
func (c IndexConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if c.ToBlock != 0 && c.ToBlock < c.FromBlock {
		return fmt.Errorf("to block %d is before from block %d", c.ToBlock, c.FromBlock)
	}
	return c.Deployment.Validate()
}

// Validate checks the deployment addresses.
func (d Deployment) Validate() error {
	if d.Vault == "" {
		return fmt.Errorf("vault address is required")
	}
	return nil
}

func loadDeployment(v *viper.Viper) Deployment {
	return Deployment{
		Variant:       v.GetString("variant"),
		Vault:         v.GetString("vault"),
		FeeController: v.GetString("fee-controller"),
		FeesCollector: v.GetString("fees-collector"),
		Factories:     getStringSlice(v, "factory"),
		SurgeHooks:    getStringSlice(v, "surge-hook"),
	}
}

func loadStore(v *viper.Viper) Store {
	return Store{
		Kind:       strings.ToLower(v.GetString("store")),
		PGDSN:      v.GetString("pg-dsn"),
		Migrations: v.GetString("migrations"),
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("variant", "v3")
	v.SetDefault("store", "memory")
	v.SetDefault("migrations", "./sql/postgres")
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
