package config // package config resolves application configuration from env, .env and flags

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration values.  Every field is resolved
// through viper, so each key can come from an environment variable of the
// same (upper-cased) name, a bound command-line flag or the default
// registered in SetDefaults.
type Config struct {
	Env        string // application environment (dev/test/prod)
	Port       string // HTTP port to listen on
	InstanceID string // identifies this process on the bus; generated when empty
	JWTSecret  string // optional HS256 secret; empty disables token identity

	DB        DBConfig
	Redis     RedisConfig
	Bus       BusConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Report    ReportConfig

	StoreTimeout    time.Duration // bound on a single store round trip
	CacheTimeout    time.Duration // bound on a single cache round trip
	ShutdownTimeout time.Duration // grace period for draining HTTP requests
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Addr returns host:port.
func (c DBConfig) Addr() string { return c.Host + ":" + c.Port }

// SetDefaults registers default values for every key and enables
// environment lookup.  It must be called before Load.
func SetDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_env", "dev")
	v.SetDefault("app_port", "8080")
	v.SetDefault("instance_id", "")
	v.SetDefault("jwt_secret", "")

	v.SetDefault("db_user", "root")
	v.SetDefault("db_pass", "")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "3306")
	v.SetDefault("db_name", "clubtables")

	v.SetDefault("store_timeout", 3*time.Second)
	v.SetDefault("cache_timeout", 500*time.Millisecond)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	setRedisDefaults(v)
	setBusDefaults(v)
	setCacheDefaults(v)
	setRateLimitDefaults(v)
	setReportDefaults(v)
}

// Load reads the resolved values from v and validates them.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:        v.GetString("app_env"),
		Port:       v.GetString("app_port"),
		InstanceID: v.GetString("instance_id"),
		JWTSecret:  v.GetString("jwt_secret"),
		DB: DBConfig{
			User: v.GetString("db_user"),
			Pass: v.GetString("db_pass"),
			Host: v.GetString("db_host"),
			Port: v.GetString("db_port"),
			Name: v.GetString("db_name"),
		},
		Redis:           loadRedis(v),
		Bus:             loadBus(v),
		Cache:           loadCache(v),
		RateLimit:       loadRateLimit(v),
		Report:          loadReport(v),
		StoreTimeout:    v.GetDuration("store_timeout"),
		CacheTimeout:    v.GetDuration("cache_timeout"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = xid.New().String()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: app_port is required")
	}
	if c.DB.Host == "" || c.DB.Name == "" || c.DB.User == "" {
		return errors.New("config: db_host, db_name and db_user are required")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: store_timeout must be positive, got %s", c.StoreTimeout)
	}
	if c.CacheTimeout <= 0 {
		return fmt.Errorf("config: cache_timeout must be positive, got %s", c.CacheTimeout)
	}
	switch c.Bus.Driver {
	case BusDriverAMQP, BusDriverMemory:
	default:
		return fmt.Errorf("config: unknown bus_driver %q", c.Bus.Driver)
	}
	if c.Bus.ConnectAttempts < 1 {
		return errors.New("config: bus_connect_attempts must be at least 1")
	}
	return nil
}
