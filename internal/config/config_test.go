package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":8443", c.GRPCAddr)
	assert.Equal(t, 30*time.Minute, c.Token.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, c.Token.RefreshTTL)
	assert.Equal(t, "propagate", c.Mail.NotifyPolicy)
	assert.False(t, c.TLS.Enabled())

	// the key has no default
	require.Error(t, c.Validate())
}

func TestLoad_FlagsOnly(t *testing.T) {
	got, err := Load([]string{
		"-jwt-key", "k",
		"-dsn", "postgres://u:p@db:5432/sf",
		"-http-addr", "127.0.0.1:9000",
		"-access-ttl", "5m",
		"-notify-policy", "rollback",
		"-login-max-fails", "3",
		"-dev",
	}, env(nil))
	require.NoError(t, err)

	want := Default()
	want.Token.Key = "k"
	want.DSN = "postgres://u:p@db:5432/sf"
	want.HTTPAddr = "127.0.0.1:9000"
	want.Token.AccessTTL = 5 * time.Minute
	want.Mail.NotifyPolicy = "rollback"
	want.Limiter.MaxFails = 3
	want.Dev = true
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sf.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
grpc_addr = ":7000"
http_addr = ":7001"
dsn = "sqlite:/var/lib/sf.db"

[token]
key = "from-file"
refresh_ttl = "48h"

[quote]
base_url = "https://quotes.example"
rps = 5.5

[limiter]
block_for = "1h"
`), 0o600))

	got, err := Load([]string{"-config", path, "-http-addr", ":7002"}, env(map[string]string{
		"STOCKFOLIO_JWT_KEY":   "from-env",
		"STOCKFOLIO_GRPC_ADDR": ":7003",
		"STOCKFOLIO_DEV":       "true",
	}))
	require.NoError(t, err)

	want := Default()
	want.DSN = "sqlite:/var/lib/sf.db"
	want.GRPCAddr = ":7003" // env over file
	want.HTTPAddr = ":7002" // flag over file
	want.Token.Key = "from-env"
	want.Token.RefreshTTL = 48 * time.Hour
	want.Quote.BaseURL = "https://quotes.example"
	want.Quote.RPS = 5.5
	want.Limiter.BlockFor = time.Hour
	want.Dev = true
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sf.toml")
	require.NoError(t, os.WriteFile(path, []byte("[token]\nkey = \"file-key\"\n"), 0o600))

	got, err := Load([]string{"--config=" + path}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "file-key", got.Token.Key)

	got, err = Load(nil, env(map[string]string{"STOCKFOLIO_CONFIG": path}))
	require.NoError(t, err)
	assert.Equal(t, "file-key", got.Token.Key)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "missing key"},
		{name: "bad policy", args: []string{"-jwt-key", "k", "-notify-policy", "retry"}},
		{name: "bad dsn", args: []string{"-jwt-key", "k", "-dsn", "mysql://x"}},
		{name: "empty sqlite path", args: []string{"-jwt-key", "k", "-dsn", "sqlite:"}},
		{name: "zero ttl", args: []string{"-jwt-key", "k", "-access-ttl", "0s"}},
		{name: "half tls", args: []string{"-jwt-key", "k", "-tls-cert", "c.pem"}},
		{name: "unknown flag", args: []string{"-jwt-key", "k", "-nope"}},
		{name: "bad env duration", args: []string{"-jwt-key", "k"}, env: map[string]string{"STOCKFOLIO_ACCESS_TTL": "soon"}},
		{name: "bad env int", args: []string{"-jwt-key", "k"}, env: map[string]string{"STOCKFOLIO_LOGIN_MAX_FAILS": "many"}},
		{name: "missing file", args: []string{"-config", "/does/not/exist.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, env(tt.env))
			require.Error(t, err)
		})
	}
}

func TestStore(t *testing.T) {
	tests := []struct {
		dsn, kind, target string
	}{
		{"postgres://u@h/db", StorePostgres, "postgres://u@h/db"},
		{"postgresql://u@h/db", StorePostgres, "postgresql://u@h/db"},
		{"sqlite:data/sf.db", StoreSQLite, "data/sf.db"},
		{"sqlite:///abs/sf.db", StoreSQLite, "/abs/sf.db"},
	}
	for _, tt := range tests {
		c := &Config{DSN: tt.dsn}
		kind, target, err := c.Store()
		require.NoError(t, err, tt.dsn)
		assert.Equal(t, tt.kind, kind)
		assert.Equal(t, tt.target, target)
	}
}
