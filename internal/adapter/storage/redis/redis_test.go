package redis

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"ebook-marketplace/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(t *testing.T, addr string) config.RedisConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: p, DialTimeout: 200 * time.Millisecond}
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(config.RedisConfig{
		Host: "redis.local", Port: 6380, Password: "pw", DB: 2,
		PoolSize: 25, DialTimeout: 3 * time.Second,
	})
	assert.Equal(t, "redis.local:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
}

func TestClientOptions_ZeroKeepsLibraryDefaults(t *testing.T) {
	opts := clientOptions(config.RedisConfig{Host: "localhost", Port: 6379})
	assert.Zero(t, opts.PoolSize)
	assert.Zero(t, opts.DialTimeout)
}

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), configFor(t, mr.Addr()), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := configFor(t, mr.Addr())
	mr.Close()

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis at "+cfg.Addr())
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), configFor(t, mr.Addr()), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	mr.SetError("LOADING dataset in memory")
	err = hc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
