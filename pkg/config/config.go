// Package config provides the configuration for reservoir hosts.
//
// The configuration is organized into logical sections:
//   - Pool: capacity, storage strategy and recycle mode of the actor pool
//   - Spawner: tick interval, actor lifetime and weighted spawn points
//   - Compression: the codec pool used by the benchmark and stats commands
//   - Logging, Metrics, Tracing: observability
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Pool.Capacity = 64
//	cfg.Pool.Recycle = "fifo"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/logger"
	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// Config is the root configuration of a reservoir host.
type Config struct {
	// Name identifies the host instance
	Name string `yaml:"name" json:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	Pool        PoolConfig        `yaml:"pool" json:"pool"`
	Spawner     SpawnerConfig     `yaml:"spawner" json:"spawner"`
	Compression CompressionConfig `yaml:"compression" json:"compression"`
	Logging     logger.Config     `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" json:"metrics"`
	Tracing     TracingConfig     `yaml:"tracing" json:"tracing"`
}

// PoolConfig describes one object pool.
type PoolConfig struct {
	// Name labels the pool in logs and metrics
	Name string `yaml:"name" json:"name"`
	// Capacity is the number of entities created at setup
	Capacity int `yaml:"capacity" json:"capacity"`
	// Storage is "stack" or "queue"
	Storage string `yaml:"storage" json:"storage"`
	// Recycle is "none", "fifo" or "lifo"
	Recycle string `yaml:"recycle" json:"recycle"`
}

// SpawnerConfig controls the periodic spawn loop.
type SpawnerConfig struct {
	Name string `yaml:"name" json:"name"`
	// Interval between spawns
	Interval time.Duration `yaml:"interval" json:"interval"`
	// Lifetime of a spawned actor before it is returned (0 = until shutdown)
	Lifetime time.Duration `yaml:"lifetime" json:"lifetime"`
	// Seed for spawn point selection (0 = time based)
	Seed   int64              `yaml:"seed" json:"seed"`
	Points []SpawnPointConfig `yaml:"points" json:"points"`
}

// SpawnPointConfig is one place an actor may appear.
type SpawnPointConfig struct {
	Name   string  `yaml:"name" json:"name"`
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Weight uint    `yaml:"weight" json:"weight"`
}

// CompressionConfig describes the pooled codecs.
type CompressionConfig struct {
	// Algorithm is one of gzip, snappy, lz4, zstd, s2
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	// Level is fastest, default, better or best
	Level string `yaml:"level" json:"level"`
	// PoolSize is the number of codecs kept ready
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Address   string `yaml:"address" json:"address"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns a configuration with sensible defaults for a single
// spawner host.
func Default() *Config {
	return &Config{
		Name:    "reservoir",
		Version: "1.0.0",
		Pool: PoolConfig{
			Name:     "actors",
			Capacity: pool.DefaultCapacity,
			Storage:  pool.StorageStack.String(),
			Recycle:  pool.RecycleNone.String(),
		},
		Spawner: SpawnerConfig{
			Name:     "spawner",
			Interval: time.Second,
			Lifetime: 5 * time.Second,
			Points: []SpawnPointConfig{
				{Name: "origin", Weight: 1},
			},
		},
		Compression: CompressionConfig{
			Algorithm: "zstd",
			Level:     "default",
			PoolSize:  4,
		},
		Logging: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:   true,
			Address:   ":9090",
			Path:      "/metrics",
			Namespace: "reservoir",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "reservoir",
			SampleRate:  0.1,
		},
	}
}

// Validate checks required fields and value ranges. Pool storage and
// recycle names are parsed so that typos fail here rather than at startup.
func (c *Config) Validate() error {
	if c.Name == "" {
		return rerrors.New(rerrors.ErrorTypeConfig, "name is required")
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if c.Spawner.Interval <= 0 {
		return rerrors.New(rerrors.ErrorTypeConfig, "spawner.interval must be positive")
	}
	if c.Spawner.Lifetime < 0 {
		return rerrors.New(rerrors.ErrorTypeConfig, "spawner.lifetime cannot be negative")
	}
	if len(c.Spawner.Points) == 0 {
		return rerrors.New(rerrors.ErrorTypeConfig, "spawner.points requires at least one spawn point")
	}
	var total uint
	for i, p := range c.Spawner.Points {
		if p.Name == "" {
			return rerrors.Newf(rerrors.ErrorTypeConfig, "spawner.points[%d].name is required", i)
		}
		total += p.Weight
	}
	if total == 0 {
		return rerrors.New(rerrors.ErrorTypeConfig, "spawner.points need a positive total weight")
	}
	if c.Compression.PoolSize <= 0 {
		return rerrors.New(rerrors.ErrorTypeConfig, "compression.pool_size must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return rerrors.Newf(rerrors.ErrorTypeConfig, "tracing.sample_rate must be within [0, 1], got %g", c.Tracing.SampleRate)
	}
	return nil
}

// Validate checks the pool section on its own.
func (p *PoolConfig) Validate() error {
	if p.Capacity <= 0 {
		return rerrors.Newf(rerrors.ErrorTypeConfig, "pool.capacity must be positive, got %d", p.Capacity)
	}
	if _, err := pool.ParseStorageKind(p.Storage); err != nil {
		return rerrors.Wrap(err, rerrors.ErrorTypeConfig, "pool.storage")
	}
	if _, err := pool.ParseRecyclePolicy(p.Recycle); err != nil {
		return rerrors.Wrap(err, rerrors.ErrorTypeConfig, "pool.recycle")
	}
	return nil
}

// Options converts the section into pool options.
func (p *PoolConfig) Options() ([]pool.Option, error) {
	kind, err := pool.ParseStorageKind(p.Storage)
	if err != nil {
		return nil, fmt.Errorf("pool %q: %w", p.Name, err)
	}
	policy, err := pool.ParseRecyclePolicy(p.Recycle)
	if err != nil {
		return nil, fmt.Errorf("pool %q: %w", p.Name, err)
	}
	return []pool.Option{
		pool.WithName(p.Name),
		pool.WithCapacity(p.Capacity),
		pool.WithStorage(kind),
		pool.WithRecycle(policy),
	}, nil
}

// TotalWeight returns the sum of all spawn point weights.
func (s *SpawnerConfig) TotalWeight() uint {
	var total uint
	for _, p := range s.Points {
		total += p.Weight
	}
	return total
}
