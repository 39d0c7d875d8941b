package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgcache"
	"github.com/hupe1980/imgcache/cache"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "imgcache.yaml"))
	require.NoError(t, err)

	assert.Equal(t, cache.TierConfig{
		Name:       "render",
		MaxEntries: 512,
		MaxBytes:   16 << 20,
		TTL:        time.Second,
		Shards:     8,
	}, cfg.Sync.TierConfig())

	// Omitted fields keep their defaults.
	assert.Equal(t, cache.DefaultAsyncConfig().MaxEntries, cfg.Async.MaxEntries)
	assert.Equal(t, 10*time.Minute, cfg.Async.IdleTTL)
	assert.Equal(t, 60*time.Second, cfg.Async.TTL)

	assert.Equal(t, Loads{MaxConcurrent: 8, PerSecond: 50, Burst: 10, Timeout: 5 * time.Second, Parallelism: 16}, cfg.Loads)
	assert.Equal(t, int64(512<<20), cfg.MemoryLimit)
	assert.Equal(t, StoreLocal, cfg.Store.Kind)
	assert.Equal(t, "zstd", cfg.Store.Compression)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	c, err := imgcache.New(cfg.Options()...)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "render", c.Sync().Name())
	assert.Equal(t, "remote", c.Async().Name())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("sync:\n  max_entires: 10\n"))
	assert.Error(t, err)
}

func TestParse_BadDuration(t *testing.T) {
	_, err := Parse([]byte("sync:\n  ttl: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"negative tier bound", func(c *Config) { c.Sync.MaxEntries = -1 }, cache.ErrInvalidConfig},
		{"same tier names", func(c *Config) { c.Async.Name = c.Sync.Name }, ErrInvalid},
		{"negative memory", func(c *Config) { c.MemoryLimit = -1 }, ErrInvalid},
		{"negative loads", func(c *Config) { c.Loads.Timeout = -time.Second }, ErrInvalid},
		{"unknown compression", func(c *Config) { c.Store.Compression = "brotli" }, ErrInvalid},
		{"unknown store", func(c *Config) { c.Store.Kind = "ftp" }, ErrInvalid},
		{"local without path", func(c *Config) { c.Store.Kind = StoreLocal }, ErrInvalid},
		{"minio without endpoint", func(c *Config) { c.Store.Kind = StoreMinio; c.Store.Bucket = "b" }, ErrInvalid},
		{"s3 without bucket", func(c *Config) { c.Store.Kind = StoreS3 }, ErrInvalid},
		{"dynamodb without table", func(c *Config) { c.Store.Kind = StoreDynamoDB }, ErrInvalid},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalid},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.target)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLog_Logger(t *testing.T) {
	assert.NotNil(t, Log{Level: "warn", Format: "json"}.Logger())
	assert.NotNil(t, Log{Level: "bogus", Format: "text"}.Logger())
}

func TestOptions_Minimal(t *testing.T) {
	cfg := Default()
	c, err := imgcache.New(cfg.Options()...)
	require.NoError(t, err)
	defer c.Close()

	assert.Zero(t, c.Stats().MemoryUsage)
	assert.Equal(t, "sync", c.Sync().Name())
}
