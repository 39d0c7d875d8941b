// Package config loads the YAML configuration of the imgcache command.
//
//	sync:
//	  max_entries: 4096
//	  max_bytes: 52428800
//	  ttl: 5s
//	async:
//	  max_bytes: 524288000
//	  ttl: 1h
//	  idle_ttl: 10m
//	loads:
//	  max_concurrent: 16
//	  per_second: 200
//	  timeout: 10s
//	store:
//	  kind: s3
//	  bucket: images
//	  compression: none
//	log:
//	  level: info
//	  format: json
//	metrics:
//	  listen: :9090
//
// Durations are Go duration strings. Omitted fields keep the values of Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/imgcache"
	"github.com/hupe1980/imgcache/cache"
	"github.com/hupe1980/imgcache/codec"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreLocal    = "local"
	StoreMinio    = "minio"
	StoreS3       = "s3"
	StoreDynamoDB = "dynamodb"
)

// Config is the root document.
type Config struct {
	Sync        Tier    `yaml:"sync"`
	Async       Tier    `yaml:"async"`
	Loads       Loads   `yaml:"loads"`
	MemoryLimit int64   `yaml:"memory_limit"`
	Store       Store   `yaml:"store"`
	Log         Log     `yaml:"log"`
	Metrics     Metrics `yaml:"metrics"`
}

// Tier configures one cache tier.
type Tier struct {
	Name       string        `yaml:"name"`
	MaxEntries int           `yaml:"max_entries"`
	MaxBytes   int64         `yaml:"max_bytes"`
	TTL        time.Duration `yaml:"ttl"`
	IdleTTL    time.Duration `yaml:"idle_ttl"`
	Shards     int           `yaml:"shards"`
}

// Loads bounds the load put on the remote store.
type Loads struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	PerSecond     float64       `yaml:"per_second"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
	Parallelism   int           `yaml:"parallelism"`
}

// Store selects and configures the blob store.
type Store struct {
	Kind        string `yaml:"kind"`
	Compression string `yaml:"compression"`
	// Path is the root directory of a local store.
	Path string `yaml:"path"`
	// LocalDir, when set, serves local drawings from this directory
	// regardless of Kind.
	LocalDir string `yaml:"local_dir"`

	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	Table  string `yaml:"table"`

	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Listen disables it.
type Metrics struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used for omitted fields.
func Default() *Config {
	return &Config{
		Sync:  tierFrom(cache.DefaultSyncConfig()),
		Async: tierFrom(cache.DefaultAsyncConfig()),
		Loads: Loads{
			Timeout:     30 * time.Second,
			Parallelism: imgcache.DefaultParallelism,
		},
		Store: Store{Kind: StoreMemory, Compression: "none"},
		Log:   Log{Level: "info", Format: "text"},
	}
}

func tierFrom(c cache.TierConfig) Tier {
	return Tier{
		Name:       c.Name,
		MaxEntries: c.MaxEntries,
		MaxBytes:   c.MaxBytes,
		TTL:        c.TTL,
		IdleTTL:    c.IdleTTL,
		Shards:     c.Shards,
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Default and validates it.
// Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	for _, t := range []Tier{c.Sync, c.Async} {
		if err := t.TierConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Sync.Name != "" && c.Sync.Name == c.Async.Name {
		errs = append(errs, fmt.Errorf("%w: tier names must differ, both are %q", ErrInvalid, c.Sync.Name))
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: memory_limit must not be negative", ErrInvalid))
	}
	if c.Loads.MaxConcurrent < 0 || c.Loads.PerSecond < 0 || c.Loads.Burst < 0 ||
		c.Loads.Timeout < 0 || c.Loads.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("%w: loads values must not be negative", ErrInvalid))
	}

	if _, err := codec.ParseAlgorithm(c.Store.Compression); err != nil {
		errs = append(errs, fmt.Errorf("%w: store.compression: %v", ErrInvalid, err))
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreLocal:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("%w: store.path is required for %s", ErrInvalid, c.Store.Kind))
		}
	case StoreMinio:
		if c.Store.Endpoint == "" || c.Store.Bucket == "" {
			errs = append(errs, fmt.Errorf("%w: store.endpoint and store.bucket are required for %s", ErrInvalid, c.Store.Kind))
		}
	case StoreS3:
		if c.Store.Bucket == "" {
			errs = append(errs, fmt.Errorf("%w: store.bucket is required for %s", ErrInvalid, c.Store.Kind))
		}
	case StoreDynamoDB:
		if c.Store.Table == "" {
			errs = append(errs, fmt.Errorf("%w: store.table is required for %s", ErrInvalid, c.Store.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown store.kind %q", ErrInvalid, c.Store.Kind))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format))
	}

	return errors.Join(errs...)
}

// TierConfig converts t to the cache package's form.
func (t Tier) TierConfig() cache.TierConfig {
	return cache.TierConfig{
		Name:       t.Name,
		MaxEntries: t.MaxEntries,
		MaxBytes:   t.MaxBytes,
		TTL:        t.TTL,
		IdleTTL:    t.IdleTTL,
		Shards:     t.Shards,
	}
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return level, nil
}

// Logger builds the configured logger.
func (l Log) Logger() *imgcache.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if l.Format == "json" {
		return imgcache.NewJSONLogger(level)
	}
	return imgcache.NewTextLogger(level)
}

// Options returns the cache options described by c. The loader, logger and
// metrics collector are wired by the caller.
func (c *Config) Options() []imgcache.Option {
	opts := []imgcache.Option{
		imgcache.WithSyncTier(c.Sync.TierConfig()),
		imgcache.WithAsyncTier(c.Async.TierConfig()),
		imgcache.WithLoadTimeout(c.Loads.Timeout),
	}
	if c.Loads.MaxConcurrent > 0 {
		opts = append(opts, imgcache.WithMaxConcurrentLoads(c.Loads.MaxConcurrent))
	}
	if c.Loads.PerSecond > 0 {
		opts = append(opts, imgcache.WithLoadRate(c.Loads.PerSecond, c.Loads.Burst))
	}
	if c.Loads.Parallelism > 0 {
		opts = append(opts, imgcache.WithParallelism(c.Loads.Parallelism))
	}
	if c.MemoryLimit > 0 {
		opts = append(opts, imgcache.WithMemoryLimit(c.MemoryLimit))
	}
	return opts
}
