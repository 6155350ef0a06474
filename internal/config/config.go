// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package config loads authcore configuration from defaults, a YAML file,
// AUTHCORE_ environment variables and command-line flags, in increasing order
// of priority.
package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/pookietalk/authcore/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load. Nested keys are
// separated by a double underscore: AUTHCORE_AUTH__SIGNING_KEY.
const EnvPrefix = "AUTHCORE_"

// MinSigningKeyBytes is the shortest accepted decoded signing key.
const MinSigningKeyBytes = 32

// Config is the complete authcore configuration.
type Config struct {
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// AuthConfig configures hashing and token issuance.
type AuthConfig struct {
	// SigningKey is the base64-encoded HMAC key.
	SigningKey      string        `koanf:"signing_key"`
	TokenTTL        time.Duration `koanf:"token_ttl" validate:"gt=0"`
	RefreshWindow   time.Duration `koanf:"refresh_window" validate:"gte=0"`
	HashCost        int           `koanf:"hash_cost" validate:"min=4,max=31"`
	HashConcurrency int           `koanf:"hash_concurrency" validate:"gte=0"`
	Issuer          string        `koanf:"issuer"`
}

// DatabaseConfig configures the PostgreSQL user directory.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	ConnectAttempts uint64        `koanf:"connect_attempts"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff" validate:"gte=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"auth.token_ttl":            "24h",
		"auth.refresh_window":       "168h",
		"auth.hash_cost":            12,
		"auth.hash_concurrency":     0,
		"auth.issuer":               "pookietalk",
		"database.connect_attempts": 5,
		"database.connect_backoff":  "200ms",
		"log.format":                "json",
		"log.level":                 "info",
		"metrics.addr":              "127.0.0.1:9464",
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"signing-key":      "auth.signing_key",
	"token-ttl":        "auth.token_ttl",
	"refresh-window":   "auth.refresh_window",
	"hash-cost":        "auth.hash_cost",
	"hash-concurrency": "auth.hash_concurrency",
	"issuer":           "auth.issuer",
	"database-url":     "database.url",
	"log-format":       "log.format",
	"log-level":        "log.level",
}

// RegisterFlags adds the configuration override flags to fs. Only flags the
// user sets take part in Load; their defaults never mask other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("signing-key", "", "base64 token signing key (at least 32 bytes decoded)")
	fs.Duration("token-ttl", 0, "lifetime of issued tokens")
	fs.Duration("refresh-window", 0, "how long after expiry a token may be refreshed (0 = unbounded)")
	fs.Int("hash-cost", 0, "bcrypt cost for new password hashes")
	fs.Int("hash-concurrency", 0, "maximum concurrent password hash computations (0 = unbounded)")
	fs.String("issuer", "", "issuer claim for new tokens")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is a YAML file to read. Empty skips the file source.
	File string
	// Flags holds flags registered with RegisterFlags. Nil skips flags.
	Flags *pflag.FlagSet
}

// Load merges the configuration sources and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", opts.File).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns AUTHCORE_AUTH__TOKEN_TTL into auth.token_ttl.
func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok || !f.Changed {
		return "", nil
	}
	return key, f.Value.String()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. The signing key is optional here since
// not every command signs tokens, but a key that is set must decode.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return oops.Code("CONFIG_INVALID").
				With("fields", fields).
				Errorf("invalid configuration: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "log.level").Wrap(err)
	}
	if c.Auth.SigningKey != "" {
		if _, err := c.Auth.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Key decodes the signing key. Standard and URL-safe base64, padded or not,
// are accepted.
func (a AuthConfig) Key() ([]byte, error) {
	raw := strings.TrimSpace(a.SigningKey)
	if raw == "" {
		return nil, oops.Code("CONFIG_INVALID").
			With("field", "auth.signing_key").
			Errorf("signing key is required")
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		key, err := enc.DecodeString(raw)
		if err != nil {
			continue
		}
		if len(key) < MinSigningKeyBytes {
			return nil, oops.Code("CONFIG_INVALID").
				With("field", "auth.signing_key").
				With("bytes", len(key)).
				Errorf("signing key must decode to at least %d bytes", MinSigningKeyBytes)
		}
		return key, nil
	}
	return nil, oops.Code("CONFIG_INVALID").
		With("field", "auth.signing_key").
		Errorf("signing key is not valid base64")
}
