package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Subgraph.URL = "https://indexer.example/subgraphs/uniswap-v4"
	return cfg
}

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults_ValidOnceSubgraphIsSet(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Subgraph.URL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subgraph: url")
}

func TestDefaults_ServerModeNeedsNoSubgraph(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.RunsWorker())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "worker"

[subgraph]
url = "https://indexer.example/graphql"
timeout = "10s"

[worker]
pools = ["0xabc", "0xdef"]
interval = "1m"
concurrency = 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "worker", cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.Subgraph.Timeout.Duration)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.Worker.Pools)
	assert.Equal(t, time.Minute, cfg.Worker.Interval.Duration)
	assert.Equal(t, 8, cfg.Worker.Concurrency)

	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Hour, cfg.Worker.Lookback.Duration)
	assert.Equal(t, 1000, cfg.Worker.FetchLimit)
	assert.Equal(t, 0.6, cfg.Analytics.CrossingWeight)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTOML(t, `
[redis]
addr = "file:6379"
`)
	t.Setenv("OBRIX_REDIS_ADDR", "env:6379")
	t.Setenv("OBRIX_WORKER_POOLS", " 0x1 , ,0x2")
	t.Setenv("OBRIX_WORKER_LOOKBACK", "30m")
	t.Setenv("OBRIX_ALERTS_VOLATILITY_ABOVE", "1.5")
	t.Setenv("OBRIX_ALERTS_ENABLED", "true")
	t.Setenv("OBRIX_SERVER_PORT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"0x1", "0x2"}, cfg.Worker.Pools)
	assert.Equal(t, 30*time.Minute, cfg.Worker.Lookback.Duration)
	assert.Equal(t, 1.5, cfg.Alerts.VolatilityAbove)
	assert.True(t, cfg.Alerts.Enabled)
	// Unparseable values leave the previous value in place.
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeTOML(t, `
[worker]
interval = "soon"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Analytics.CrossingWeight = 0.8
	cfg.Analytics.HurstWeight = 0.4
	cfg.Postgres.PoolMinConns = 50

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, `unknown log_level "loud"`)
	assert.Contains(t, msg, "redis: addr")
	assert.Contains(t, msg, "analytics: weights")
	assert.Contains(t, msg, "pool_min_conns must not exceed")
}

func TestValidate_WorkerBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Worker.FetchLimit = 1
	cfg.Worker.Concurrency = 0
	cfg.Worker.Consumer = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_limit")
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), "consumer")
}

func TestValidate_S3OnlyCheckedWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.S3.Bucket = ""
	assert.NoError(t, cfg.Validate())

	cfg.S3.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Subgraph.APIKey = "key"
	cfg.Notify.TelegramToken = "tg"
	cfg.Worker.Pools = []string{"0x1"}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Subgraph.APIKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Notify.DiscordWebhookURL)

	out.Worker.Pools[0] = "0x2"
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, "0x1", cfg.Worker.Pools[0])
}
