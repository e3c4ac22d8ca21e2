package sessionauth

import (
	"testing"
	"time"
)

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without secret must not validate")
	}
	cfg.JWT.Secret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with secret: %v", err)
	}
	if cfg.Refresh.TTL != time.Hour || cfg.Refresh.KeyPrefix != "refresh_token" {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"short secret":    func(c *Config) { c.JWT.Secret = []byte("short") },
		"zero access ttl": func(c *Config) { c.JWT.AccessTTL = 0 },
		"big leeway":      func(c *Config) { c.JWT.Leeway = time.Hour },
		"zero refresh":    func(c *Config) { c.Refresh.TTL = 0 },
		"refresh < access": func(c *Config) {
			c.Refresh.TTL = time.Minute
			c.JWT.AccessTTL = 15 * time.Minute
		},
		"prefix whitespace": func(c *Config) { c.Refresh.KeyPrefix = "a b" },
		"bcrypt cost":       func(c *Config) { c.Password.Cost = 2 },
	}
	for name, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCloneConfigCopiesSecret(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.JWT.Secret[0] = 'X'
	if cfg.JWT.Secret[0] == 'X' {
		t.Fatal("clone must not alias the secret")
	}
}
