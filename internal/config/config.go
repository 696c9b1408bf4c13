package config

import (
	"strings"
	"time"

	"github.com/glassworks/authcore/params"
	"github.com/spf13/viper"
)

type MySQLConfig struct {
	Dsn             string `mapstructure:"dsn"`
	TablePrefix     string `mapstructure:"tablePrefix"`
	MaxIdleConns    int    `mapstructure:"maxIdleConns"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int    `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int    `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type AuthConfig struct {
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	LockoutDuration time.Duration `mapstructure:"lockoutDuration"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idleTimeout"`
	MaxPerUser    int           `mapstructure:"maxPerUser"`
	StrictBinding bool          `mapstructure:"strictBinding"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type AuditConfig struct {
	MaxEvents int  `mapstructure:"maxEvents"`
	Durable   bool `mapstructure:"durable"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Debug           bool          `mapstructure:"debug"`
	HealthCheckAddr string        `mapstructure:"healthCheckAddr"`
	MySQL           MySQLConfig   `mapstructure:"mysql"`
	Redis           RedisConfig   `mapstructure:"redis"`
	Auth            AuthConfig    `mapstructure:"auth"`
	Session         SessionConfig `mapstructure:"session"`
	Audit           AuditConfig   `mapstructure:"audit"`
	Cache           CacheConfig   `mapstructure:"cache"`
}

func (c *Config) Sanitize() error {
	if c.HealthCheckAddr == "" {
		c.HealthCheckAddr = params.HealthCheckServerAddr
	}
	if c.Auth.MaxAttempts == 0 {
		c.Auth.MaxAttempts = params.MaxLoginAttempts
	}
	if c.Auth.LockoutDuration == 0 {
		c.Auth.LockoutDuration = params.LockoutDuration
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = params.SessionIdleTimeout
	}
	if c.Session.MaxPerUser == 0 {
		c.Session.MaxPerUser = params.MaxSessionsPerUser
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = params.SessionSweepInterval
	}
	if c.Audit.MaxEvents == 0 {
		c.Audit.MaxEvents = params.AuditLogMaxEvents
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = params.PermissionCacheTTL
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	viper.SetConfigFile(filename)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
