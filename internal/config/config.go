package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Validator   ValidatorConfig   `mapstructure:"validator"`
	Failsafe    FailsafeConfig    `mapstructure:"failsafe"`
	Incidents   IncidentsConfig   `mapstructure:"incidents"`
	SLO         SLOConfig         `mapstructure:"slo"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory | postgres
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SchedulerConfig struct {
	Tick           time.Duration `mapstructure:"tick"`
	MaxInFlight    int64         `mapstructure:"max_in_flight"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	UserAgent      string        `mapstructure:"user_agent"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

type ValidatorConfig struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	DNSServer        string        `mapstructure:"dns_server"` // пусто - системный резолвер
	DNSTimeout       time.Duration `mapstructure:"dns_timeout"`
	RequireHostname  bool          `mapstructure:"require_hostname"`
	DialGuard        bool          `mapstructure:"dial_guard"`
	BlockedHostnames []string      `mapstructure:"blocked_hostnames"`
}

type FailsafeConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	TriggerPercent    float64 `mapstructure:"trigger_percent"`
	ConsecutiveCycles int     `mapstructure:"consecutive_cycles"`
	MinMonitors       int     `mapstructure:"min_monitors"`
}

type IncidentsConfig struct {
	DailyThreshold      int `mapstructure:"daily_threshold"`
	DefaultLookbackDays int `mapstructure:"default_lookback_days"`
	MaxLookbackDays     int `mapstructure:"max_lookback_days"`
	DefaultLimit        int `mapstructure:"default_limit"`
	MaxLimit            int `mapstructure:"max_limit"`
}

type SLOConfig struct {
	DefaultTarget     float64 `mapstructure:"default_target"`
	MinTarget         float64 `mapstructure:"min_target"`
	MaxTarget         float64 `mapstructure:"max_target"`
	DefaultWindowDays int     `mapstructure:"default_window_days"`
	MaxWindowDays     int     `mapstructure:"max_window_days"`
	WarnBurnRate      float64 `mapstructure:"warn_burn_rate"`
	HighBurnRate      float64 `mapstructure:"high_burn_rate"`
	CriticalBurnRate  float64 `mapstructure:"critical_burn_rate"`
}

type MaintenanceConfig struct {
	MinDuration time.Duration `mapstructure:"min_duration"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
	MaxLeadTime time.Duration `mapstructure:"max_lead_time"`
	PastGrace   time.Duration `mapstructure:"past_grace"`
}

type SeedConfig struct {
	MonitorsFile string `mapstructure:"monitors_file"`
}

func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom читает config.yaml из каталога, переменные окружения PULSEWATCH_*
// переопределяют значения из файла
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("PULSEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var errViper viper.ConfigFileNotFoundError
		if errors.As(err, &errViper) {
			slog.Warn("config file not found, using defaults and environment")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config, %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed, %w", err)
	}

	slog.Info("configuration loaded successfully")
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// app defaults
	v.SetDefault("app.name", "pulsewatch")
	v.SetDefault("app.version", "1.0.0")

	// server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	// storage defaults
	v.SetDefault("storage.driver", "memory")

	// database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pulsewatch")
	v.SetDefault("database.password", "pulsewatch")
	v.SetDefault("database.dbname", "pulsewatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)

	// redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "pulsewatch:transitions")

	// logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// scheduler defaults
	v.SetDefault("scheduler.tick", "5s")
	v.SetDefault("scheduler.max_in_flight", 50)
	v.SetDefault("scheduler.default_timeout", "10s")
	v.SetDefault("scheduler.max_body_bytes", 64*1024)
	v.SetDefault("scheduler.user_agent", "PulseWatch/1.0")
	v.SetDefault("scheduler.persist_timeout", "5s")

	// validator defaults
	v.SetDefault("validator.cache_ttl", "60s")
	v.SetDefault("validator.dns_server", "")
	v.SetDefault("validator.dns_timeout", "5s")
	v.SetDefault("validator.require_hostname", false)
	v.SetDefault("validator.dial_guard", true)

	// failsafe defaults
	v.SetDefault("failsafe.enabled", true)
	v.SetDefault("failsafe.trigger_percent", 80.0)
	v.SetDefault("failsafe.consecutive_cycles", 10)
	v.SetDefault("failsafe.min_monitors", 5)

	// incidents defaults
	v.SetDefault("incidents.daily_threshold", 20)
	v.SetDefault("incidents.default_lookback_days", 30)
	v.SetDefault("incidents.max_lookback_days", 365)
	v.SetDefault("incidents.default_limit", 50)
	v.SetDefault("incidents.max_limit", 500)

	// slo defaults
	v.SetDefault("slo.default_target", 99.9)
	v.SetDefault("slo.min_target", 90.0)
	v.SetDefault("slo.max_target", 99.999)
	v.SetDefault("slo.default_window_days", 30)
	v.SetDefault("slo.max_window_days", 365)
	v.SetDefault("slo.warn_burn_rate", 1.0)
	v.SetDefault("slo.high_burn_rate", 3.0)
	v.SetDefault("slo.critical_burn_rate", 10.0)

	// maintenance defaults
	v.SetDefault("maintenance.min_duration", "5m")
	v.SetDefault("maintenance.max_duration", "168h")
	v.SetDefault("maintenance.max_lead_time", "2160h") // 90 дней
	v.SetDefault("maintenance.past_grace", "5m")

	v.SetDefault("seed.monitors_file", "")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" {
		return fmt.Errorf("invalid server mode %s", cfg.Server.Mode)
	}

	switch cfg.Storage.Driver {
	case "memory":
	case "postgres":
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("invalid storage driver %s", cfg.Storage.Driver)
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if cfg.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler tick must be positive")
	}
	if cfg.Scheduler.MaxInFlight < 1 {
		return fmt.Errorf("scheduler max_in_flight must be at least 1")
	}
	if cfg.Scheduler.DefaultTimeout <= 0 {
		return fmt.Errorf("scheduler default_timeout must be positive")
	}

	if cfg.Failsafe.TriggerPercent <= 0 || cfg.Failsafe.TriggerPercent > 100 {
		return fmt.Errorf("failsafe trigger_percent must be in (0, 100]")
	}
	if cfg.Failsafe.ConsecutiveCycles < 1 {
		return fmt.Errorf("failsafe consecutive_cycles must be at least 1")
	}

	if cfg.SLO.MinTarget <= 0 || cfg.SLO.MaxTarget >= 100 || cfg.SLO.MinTarget > cfg.SLO.MaxTarget {
		return fmt.Errorf("invalid slo target bounds [%v, %v]", cfg.SLO.MinTarget, cfg.SLO.MaxTarget)
	}
	if cfg.SLO.DefaultTarget < cfg.SLO.MinTarget || cfg.SLO.DefaultTarget > cfg.SLO.MaxTarget {
		return fmt.Errorf("slo default_target %v out of bounds", cfg.SLO.DefaultTarget)
	}
	// Пороги burn rate должны возрастать
	if !(cfg.SLO.WarnBurnRate < cfg.SLO.HighBurnRate && cfg.SLO.HighBurnRate < cfg.SLO.CriticalBurnRate) {
		return fmt.Errorf("slo burn rate thresholds must be increasing")
	}

	if cfg.Maintenance.MinDuration <= 0 || cfg.Maintenance.MaxDuration < cfg.Maintenance.MinDuration {
		return fmt.Errorf("invalid maintenance duration bounds")
	}

	if cfg.Incidents.DailyThreshold < 1 {
		return fmt.Errorf("incidents daily_threshold must be at least 1")
	}

	return nil
}

// GetDSN возвращает DSN строку для PostgreSQL
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// GetRedisOptions возвращает настройки для Redis клиента
func (r *RedisConfig) GetRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:            r.Addr,
		Password:        r.Password,
		DB:              r.DB,
		DisableIdentity: true,
	}
}
