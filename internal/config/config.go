// Package config provides Viper-based configuration loading for the gunevo daemon.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/finnkarter/gameosdpas/internal/game/engine"
)

// EnvPrefix is prepended to every environment override, e.g. GUNEVO_STORAGE_BACKEND.
const EnvPrefix = "GUNEVO"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// RNG modes accepted by GameConfig.RNG.
const (
	RNGCrypto = "crypto"
	RNGSeeded = "seeded"
	RNGFair   = "fair"
)

// GameConfig holds the economy, combat tuning, scheduler periods and content source.
type GameConfig struct {
	engine.Settings `mapstructure:",squash"`
	Intervals       engine.Intervals `mapstructure:"intervals"`
	// RNG selects the roll source: "crypto", "seeded" or "fair".
	RNG  string `mapstructure:"rng"`
	Seed uint64 `mapstructure:"seed"`
	// ServerSeed and ClientSeed feed the provably fair stream.
	ServerSeed string `mapstructure:"server_seed"`
	ClientSeed string `mapstructure:"client_seed"`
	// ContentDir overrides the embedded catalog when non-empty.
	ContentDir string `mapstructure:"content_dir"`
	// LogRolls logs every roll at debug level.
	LogRolls bool `mapstructure:"log_rolls"`
}

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects where snapshots are persisted.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the snapshot file for "file" and the database file for "sqlite".
	Path string `mapstructure:"path"`
	// Slot names the save row for the database backends.
	Slot        string        `mapstructure:"slot"`
	SaveTimeout time.Duration `mapstructure:"save_timeout"`
}

// ServerConfig holds the daemon's runtime settings.
type ServerConfig struct {
	// HealthAddr is the gRPC health service listen address; empty disables it.
	HealthAddr string `mapstructure:"health_addr"`
	// Tick is how often the cooperative scheduler is driven.
	Tick time.Duration `mapstructure:"tick"`
}

// TelemetryConfig holds OpenTelemetry trace export settings.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector URL; empty disables export.
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Game      GameConfig      `mapstructure:"game"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	// The database section only matters when it is used.
	if c.Storage.Backend == BackendPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Telemetry.Endpoint != "" && c.Telemetry.ServiceName == "" {
		errs = append(errs, "telemetry.service_name must not be empty when telemetry.endpoint is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.StartingCurrency < 0 {
		errs = append(errs, fmt.Sprintf("game.starting_currency must be >= 0, got %d", g.StartingCurrency))
	}
	if g.DefaultRange == "" {
		errs = append(errs, "game.default_range must not be empty")
	}
	if g.ReloadTime < 0 {
		errs = append(errs, "game.reload_time must not be negative")
	}
	if g.AmmoPrice < 0 {
		errs = append(errs, fmt.Sprintf("game.ammo_price must be >= 0, got %d", g.AmmoPrice))
	}
	if g.ExperienceDivisor < 1 {
		errs = append(errs, fmt.Sprintf("game.experience_divisor must be >= 1, got %d", g.ExperienceDivisor))
	}
	for name, p := range map[string]float64{
		"critical_chance": g.Combat.CriticalChance,
		"headshot_chance": g.Combat.HeadshotChance,
		"variance":        g.Combat.Variance,
		"min_hit_chance":  g.Combat.MinHitChance,
		"max_hit_chance":  g.Combat.MaxHitChance,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Sprintf("game.combat.%s must be within [0, 1], got %v", name, p))
		}
	}
	if g.Combat.MinHitChance > g.Combat.MaxHitChance {
		errs = append(errs, "game.combat.min_hit_chance must not exceed game.combat.max_hit_chance")
	}
	for name, d := range map[string]time.Duration{
		"auto_fire": g.Intervals.AutoFire,
		"spawn":     g.Intervals.Spawn,
		"play_time": g.Intervals.PlayTime,
		"auto_save": g.Intervals.AutoSave,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("game.intervals.%s must be positive, got %s", name, d))
		}
	}
	switch g.RNG {
	case RNGCrypto, RNGSeeded:
	case RNGFair:
		if g.ServerSeed == "" {
			errs = append(errs, "game.server_seed must not be empty when game.rng is fair")
		}
	default:
		errs = append(errs, fmt.Sprintf("game.rng must be one of [crypto, seeded, fair], got %q", g.RNG))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	switch s.Backend {
	case BackendFile, BackendSQLite:
		if s.Path == "" {
			errs = append(errs, fmt.Sprintf("storage.path must not be empty for backend %q", s.Backend))
		}
	case BackendPostgres:
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be one of [file, sqlite, postgres], got %q", s.Backend))
	}
	if s.Backend != BackendFile && s.Slot == "" {
		errs = append(errs, "storage.slot must not be empty")
	}
	if s.SaveTimeout <= 0 {
		errs = append(errs, "storage.save_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Tick <= 0 {
		return errors.New("server.tick must be positive")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and the environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and GUNEVO_ environment overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "gunevo")

	game := engine.DefaultSettings()
	v.SetDefault("game.starting_currency", game.StartingCurrency)
	v.SetDefault("game.default_range", game.DefaultRange)
	v.SetDefault("game.reload_time", game.ReloadTime)
	v.SetDefault("game.ammo_price", game.AmmoPrice)
	v.SetDefault("game.level_up_bonus", game.LevelUpBonus)
	v.SetDefault("game.experience_divisor", game.ExperienceDivisor)
	v.SetDefault("game.combat.critical_chance", game.Combat.CriticalChance)
	v.SetDefault("game.combat.headshot_chance", game.Combat.HeadshotChance)
	v.SetDefault("game.combat.variance", game.Combat.Variance)
	v.SetDefault("game.combat.min_hit_chance", game.Combat.MinHitChance)
	v.SetDefault("game.combat.max_hit_chance", game.Combat.MaxHitChance)

	iv := engine.DefaultIntervals()
	v.SetDefault("game.intervals.auto_fire", iv.AutoFire)
	v.SetDefault("game.intervals.spawn", iv.Spawn)
	v.SetDefault("game.intervals.play_time", iv.PlayTime)
	v.SetDefault("game.intervals.auto_save", iv.AutoSave)
	v.SetDefault("game.rng", RNGCrypto)
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.server_seed", "")
	v.SetDefault("game.client_seed", "")
	v.SetDefault("game.content_dir", "")
	v.SetDefault("game.log_rolls", false)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "data/save.json")
	v.SetDefault("storage.slot", "default")
	v.SetDefault("storage.save_timeout", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gunevo")
	v.SetDefault("database.password", "gunevo")
	v.SetDefault("database.name", "gunevo")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("server.health_addr", "127.0.0.1:50051")
	v.SetDefault("server.tick", "50ms")
}
