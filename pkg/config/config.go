// Package config loads the server configuration from YAML, applies
// UASPACE_* environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-uaspace/pkg/validation"
)

// Auth modes.
const (
	AuthNone     = "none"
	AuthPassword = "password"
	AuthJWT      = "jwt"
)

// History providers.
const (
	HistoryNone     = "none"
	HistoryMock     = "mock"
	HistoryPostgres = "postgres"
)

// Config is the complete server configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	AddressSpace AddressSpaceConfig `yaml:"addressspace"`
	Browse       BrowseConfig       `yaml:"browse"`
	Auth         AuthConfig         `yaml:"auth"`
	History      HistoryConfig      `yaml:"history"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	GraphQL         bool          `yaml:"graphql"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ModelConfig names one model document and the CSV of node ids for its
// symbolic names. Locations are file paths or s3://bucket/key URLs.
type ModelConfig struct {
	URI     string `yaml:"uri" validate:"required"`
	Path    string `yaml:"path" validate:"required"`
	NodeIDs string `yaml:"nodeids"`
}

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type AddressSpaceConfig struct {
	Locale     string        `yaml:"locale" validate:"required"`
	RootFolder string        `yaml:"root_folder" validate:"required"`
	Sample     bool          `yaml:"sample"`
	SampleURI  string        `yaml:"sample_uri"`
	Models     []ModelConfig `yaml:"models" validate:"dive"`
	S3         S3Config      `yaml:"s3"`
}

type BrowseConfig struct {
	MaxNodesPerRequest int `yaml:"max_nodes_per_request" validate:"min=1"`
}

type UserConfig struct {
	Username     string `yaml:"username" validate:"required"`
	PasswordHash string `yaml:"password_hash" validate:"required"`
	Role         string `yaml:"role" validate:"oneof=admin operator observer"`
}

type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// AuthConfig selects the authenticator. Password mode without users falls
// back to the sample users when the sample namespace is enabled.
type AuthConfig struct {
	Mode  string       `yaml:"mode" validate:"oneof=none password jwt"`
	Users []UserConfig `yaml:"users" validate:"dive"`
	JWT   JWTConfig    `yaml:"jwt"`
}

type HistoryConfig struct {
	Provider string `yaml:"provider" validate:"oneof=none mock postgres"`
	DSN      string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			GraphQL:         true,
		},
		Logging: LoggingConfig{Level: "info"},
		AddressSpace: AddressSpaceConfig{
			Locale:     "en",
			RootFolder: "Objects",
			Sample:     true,
			SampleURI:  "urn:cluso:uaspace:building",
		},
		Browse:  BrowseConfig{MaxNodesPerRequest: validation.MaxNodesPerBrowse},
		Auth:    AuthConfig{Mode: AuthNone, JWT: JWTConfig{Issuer: "uaspace", TokenTTL: time.Hour}},
		History: HistoryConfig{Provider: HistoryMock},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path uses the defaults only.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with a custom environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type override struct {
	key   string
	apply func(c *Config, v string) error
}

func str(set func(*Config, string)) func(*Config, string) error {
	return func(c *Config, v string) error { set(c, v); return nil }
}

var overrides = []override{
	{"UASPACE_ADDR", str(func(c *Config, v string) { c.Server.Addr = v })},
	{"LOG_LEVEL", str(func(c *Config, v string) { c.Logging.Level = v })},
	{"UASPACE_LOG_LEVEL", str(func(c *Config, v string) { c.Logging.Level = v })},
	{"UASPACE_LOCALE", str(func(c *Config, v string) { c.AddressSpace.Locale = v })},
	{"UASPACE_SAMPLE", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.AddressSpace.Sample = b
		return err
	}},
	{"UASPACE_MAX_NODES_PER_REQUEST", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Browse.MaxNodesPerRequest = n
		return err
	}},
	{"UASPACE_AUTH_MODE", str(func(c *Config, v string) { c.Auth.Mode = v })},
	{"UASPACE_JWT_SECRET", str(func(c *Config, v string) { c.Auth.JWT.Secret = v })},
	{"UASPACE_HISTORY_PROVIDER", str(func(c *Config, v string) { c.History.Provider = v })},
	{"UASPACE_HISTORY_DSN", str(func(c *Config, v string) { c.History.DSN = v })},
	{"UASPACE_S3_REGION", str(func(c *Config, v string) { c.AddressSpace.S3.Region = v })},
	{"UASPACE_S3_ENDPOINT", str(func(c *Config, v string) { c.AddressSpace.S3.Endpoint = v })},
	{"UASPACE_S3_ACCESS_KEY_ID", str(func(c *Config, v string) { c.AddressSpace.S3.AccessKeyID = v })},
	{"UASPACE_S3_SECRET_ACCESS_KEY", str(func(c *Config, v string) { c.AddressSpace.S3.SecretAccessKey = v })},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, o := range overrides {
		v, ok := lookup(o.key)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(c, v); err != nil {
			errs = append(errs, fmt.Errorf("config: %s=%q: %w", o.key, v, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks struct tags and the rules spanning sections.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cv := validation.NewConfigValidator("config")
	cv.MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second).
		When(c.AddressSpace.Sample, func(cv *validation.ConfigValidator) {
			cv.URI("addressspace.sample_uri", c.AddressSpace.SampleURI)
		}).
		When(c.Auth.Mode == AuthPassword && !c.AddressSpace.Sample, func(cv *validation.ConfigValidator) {
			cv.Positive("auth.users", len(c.Auth.Users))
		}).
		When(c.Auth.Mode == AuthJWT, func(cv *validation.ConfigValidator) {
			cv.Custom("auth.jwt.secret", func() error {
				if len(c.Auth.JWT.Secret) < 32 {
					return errors.New("must be at least 32 characters")
				}
				return nil
			}).MinDuration("auth.jwt.token_ttl", c.Auth.JWT.TokenTTL, time.Second)
		}).
		When(c.History.Provider == HistoryPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("history.dsn", c.History.DSN)
		})

	seen := make(map[string]bool, len(c.AddressSpace.Models))
	for i, m := range c.AddressSpace.Models {
		field := fmt.Sprintf("addressspace.models[%d].uri", i)
		cv.URI(field, m.URI)
		if seen[m.URI] || (c.AddressSpace.Sample && m.URI == c.AddressSpace.SampleURI) {
			cv.Custom(field, func() error { return fmt.Errorf("namespace %s configured twice", m.URI) })
		}
		seen[m.URI] = true
	}
	return cv.Validate()
}
