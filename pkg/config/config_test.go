package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uaspace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := LoadWithEnv("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, AuthNone, cfg.Auth.Mode)
	assert.Equal(t, HistoryMock, cfg.History.Provider)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:4840"
  shutdown_timeout: 5s
logging:
  level: debug
addressspace:
  locale: de
  root_folder: Gebaeude
  sample: false
  models:
    - uri: "urn:example:boiler"
      path: models/boiler.xml
      nodeids: models/boiler.csv
    - uri: "http://example.com/UA/Pumps/"
      path: "s3://models/pumps.xml"
browse:
  max_nodes_per_request: 50
auth:
  mode: jwt
  jwt:
    secret: "0123456789abcdef0123456789abcdef"
    token_ttl: 10m
history:
  provider: none
`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:4840", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Gebaeude", cfg.AddressSpace.RootFolder)
	require.Len(t, cfg.AddressSpace.Models, 2)
	assert.Equal(t, ModelConfig{URI: "urn:example:boiler", Path: "models/boiler.xml", NodeIDs: "models/boiler.csv"}, cfg.AddressSpace.Models[0])
	assert.Equal(t, 50, cfg.Browse.MaxNodesPerRequest)
	assert.Equal(t, 10*time.Minute, cfg.Auth.JWT.TokenTTL)
	assert.Equal(t, "uaspace", cfg.Auth.JWT.Issuer)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := LoadWithEnv("", env(map[string]string{
		"UASPACE_ADDR":                  ":9000",
		"LOG_LEVEL":                     "warn",
		"UASPACE_SAMPLE":                "false",
		"UASPACE_MAX_NODES_PER_REQUEST": "10",
		"UASPACE_HISTORY_PROVIDER":      "postgres",
		"UASPACE_HISTORY_DSN":           "postgres://localhost/ua",
		"UASPACE_S3_REGION":             "eu-central-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.AddressSpace.Sample)
	assert.Equal(t, 10, cfg.Browse.MaxNodesPerRequest)
	assert.Equal(t, HistoryPostgres, cfg.History.Provider)
	assert.Equal(t, "eu-central-1", cfg.AddressSpace.S3.Region)

	_, err = LoadWithEnv("", env(map[string]string{"UASPACE_SAMPLE": "maybe"}))
	assert.ErrorContains(t, err, "UASPACE_SAMPLE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, "Level"},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "ldap" }, "Mode"},
		{"password without users", func(c *Config) { c.Auth.Mode = AuthPassword; c.AddressSpace.Sample = false }, "auth.users"},
		{"short jwt secret", func(c *Config) { c.Auth.Mode = AuthJWT; c.Auth.JWT.Secret = "short" }, "auth.jwt.secret"},
		{"postgres without dsn", func(c *Config) { c.History.Provider = HistoryPostgres }, "history.dsn"},
		{"short shutdown", func(c *Config) { c.Server.ShutdownTimeout = time.Millisecond }, "shutdown_timeout"},
		{"relative model uri", func(c *Config) {
			c.AddressSpace.Models = []ModelConfig{{URI: "boiler", Path: "boiler.xml"}}
		}, "models[0].uri"},
		{"model without path", func(c *Config) {
			c.AddressSpace.Models = []ModelConfig{{URI: "urn:x"}}
		}, "Path"},
		{"duplicate namespace", func(c *Config) {
			c.AddressSpace.Models = []ModelConfig{{URI: "urn:x", Path: "a.xml"}, {URI: "urn:x", Path: "b.xml"}}
		}, "configured twice"},
		{"model reusing sample namespace", func(c *Config) {
			c.AddressSpace.Models = []ModelConfig{{URI: c.AddressSpace.SampleURI, Path: "a.xml"}}
		}, "configured twice"},
		{"bad user role", func(c *Config) {
			c.Auth.Users = []UserConfig{{Username: "alice", PasswordHash: "$2a$", Role: "root"}}
		}, "Role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadWithEnv(writeConfig(t, "server: [unclosed"), env(nil))
	assert.ErrorContains(t, err, "parse")
}
