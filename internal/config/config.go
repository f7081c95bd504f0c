// Package config defines the worker-node engine's tunables and the
// ambient process configuration (logging, metrics), loaded through
// viper the way autobrr-qui's internal/domain.Config is bound.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds every tunable the engine core recognizes (spec.md §6)
// plus the ambient logging/metrics options the process needs. All
// other flags a real cluster tool might have are opaque to this
// module.
type Config struct {
	NumThreads        int     `mapstructure:"numThreads"`
	InitialBackends   int     `mapstructure:"initialBackendThreads"`
	ChunkSize         uint64  `mapstructure:"chunkSize"`
	RequestThreshold  uint64  `mapstructure:"requestThreshold"`
	BatchSize         uint64  `mapstructure:"batchSize"`
	PromoteHi         float64 `mapstructure:"promoteHi"`
	MinSteal          uint64  `mapstructure:"minSteal"`
	DrainCycles       int     `mapstructure:"drainCycles"`
	MaxBackendEntries int     `mapstructure:"maxBackendEntries"` // 0 = unbounded

	NumShards uint64 `mapstructure:"numShards"`
	MyShard   uint64 `mapstructure:"myShard"`

	LogLevel       string `mapstructure:"logLevel"`
	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	MetricsAddr    string `mapstructure:"metricsAddr"`
}

// Default returns the engine's baseline tunables.
func Default() Config {
	return Config{
		NumThreads:        4,
		InitialBackends:   1,
		ChunkSize:         256,
		RequestThreshold:  512,
		BatchSize:         32,
		PromoteHi:         2.0,
		MinSteal:          16,
		DrainCycles:       3,
		MaxBackendEntries: 0,
		NumShards:         1,
		MyShard:           0,
		LogLevel:          "info",
		MetricsEnabled:    true,
		MetricsAddr:       ":9090",
	}
}

// Validate rejects tunable combinations the engine cannot run under
// (spec.md §6: NumThreads >= 2, and the role invariant needs at least
// one thread free to demote into each duty).
func (c Config) Validate() error {
	if c.NumThreads < 2 {
		return errors.New("config: numThreads must be >= 2")
	}
	if c.InitialBackends < 1 || c.InitialBackends > c.NumThreads-1 {
		return errors.Errorf("config: initialBackendThreads must be in [1, numThreads-1], got %d", c.InitialBackends)
	}
	if c.ChunkSize == 0 {
		return errors.New("config: chunkSize must be > 0")
	}
	if c.BatchSize == 0 {
		return errors.New("config: batchSize must be > 0")
	}
	if c.NumShards == 0 {
		return errors.New("config: numShards must be > 0")
	}
	if c.MyShard >= c.NumShards {
		return errors.Errorf("config: myShard %d out of range for numShards %d", c.MyShard, c.NumShards)
	}
	if c.PromoteHi <= 0 {
		return errors.New("config: promoteHi must be > 0")
	}
	return nil
}

// Load resolves a Config from values already set on v (the CLI sets
// its flag values there), environment variables (prefixed HMMWORKER_),
// and defaults; it reads no config file itself. Every tunable's default is
// registered with viper via SetDefault so AutomaticEnv can actually
// resolve it on Unmarshal — viper only checks the environment for
// keys it already knows about.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()

	v.SetEnvPrefix("HMMWORKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("numThreads", cfg.NumThreads)
	v.SetDefault("initialBackendThreads", cfg.InitialBackends)
	v.SetDefault("chunkSize", cfg.ChunkSize)
	v.SetDefault("requestThreshold", cfg.RequestThreshold)
	v.SetDefault("batchSize", cfg.BatchSize)
	v.SetDefault("promoteHi", cfg.PromoteHi)
	v.SetDefault("minSteal", cfg.MinSteal)
	v.SetDefault("drainCycles", cfg.DrainCycles)
	v.SetDefault("maxBackendEntries", cfg.MaxBackendEntries)
	v.SetDefault("numShards", cfg.NumShards)
	v.SetDefault("myShard", cfg.MyShard)
	v.SetDefault("logLevel", cfg.LogLevel)
	v.SetDefault("metricsEnabled", cfg.MetricsEnabled)
	v.SetDefault("metricsAddr", cfg.MetricsAddr)

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// String renders the config for startup logging.
func (c Config) String() string {
	return fmt.Sprintf(
		"numThreads=%d initialBackends=%d chunkSize=%d requestThreshold=%d batchSize=%d numShards=%d myShard=%d",
		c.NumThreads, c.InitialBackends, c.ChunkSize, c.RequestThreshold, c.BatchSize, c.NumShards, c.MyShard,
	)
}
