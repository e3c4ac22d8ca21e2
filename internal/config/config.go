package config

import (
	"time"

	"github.com/baxter-io/sessionauth/internal/obs"
	"github.com/baxter-io/sessionauth/store/mysql"
	"github.com/baxter-io/sessionauth/store/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

// Auth carries the engine settings. JWTSecret is base64 (standard or raw URL
// encoding) and is decoded into JWTSecretBytes by Load.
type Auth struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTSecretBytes []byte        `mapstructure:"-"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	Leeway         time.Duration `mapstructure:"leeway"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	RefreshPrefix  string        `mapstructure:"refresh_prefix"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	ProfileRole    string        `mapstructure:"profile_role"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver   string          `mapstructure:"driver"`
	Migrate  bool            `mapstructure:"migrate"`
	Postgres postgres.Config `mapstructure:"postgres"`
	MySQL    mysql.Config    `mapstructure:"mysql"`
}

type Metrics struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

type Config struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	Log     Log     `mapstructure:"log"`
	Auth    Auth    `mapstructure:"auth"`
	Redis   Redis   `mapstructure:"redis"`
	DB      DB      `mapstructure:"db"`
	Metrics Metrics `mapstructure:"metrics"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
