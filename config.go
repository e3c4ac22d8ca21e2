package sessionauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baxter-io/sessionauth/jwt"
	"github.com/baxter-io/sessionauth/password"
	"github.com/baxter-io/sessionauth/refresh"
)

// Config defines a public type used by sessionauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	Password PasswordConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access token signing. Secret is the raw HMAC key and
// must be at least 32 bytes.
type JWTConfig struct {
	AccessTTL time.Duration
	Secret    []byte
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures the Redis-backed refresh token store.
type RefreshConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures bcrypt. Cost 0 selects password.DefaultCost.
type PasswordConfig struct {
	Cost int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. The signing secret is
// left empty and must be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
		},
		Refresh: RefreshConfig{
			TTL:       refresh.DefaultTTL,
			KeyPrefix: refresh.DefaultKeyPrefix,
		},
		Password: PasswordConfig{
			Cost: password.DefaultCost,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for values the Engine cannot run with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT Secret must be at least %d bytes", jwt.MinSecretLength)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL < c.JWT.AccessTTL {
		return errors.New("Refresh TTL must be >= JWT AccessTTL")
	}
	if strings.ContainsAny(c.Refresh.KeyPrefix, " \t\r\n") {
		return errors.New("Refresh KeyPrefix must not contain whitespace")
	}
	if c.Password.Cost != 0 && (c.Password.Cost < 4 || c.Password.Cost > 31) {
		return errors.New("Password Cost must be between 4 and 31")
	}
	return nil
}
