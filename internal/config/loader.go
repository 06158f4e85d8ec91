package config

import (
	"fmt"
	"strconv"

	"github.com/oslri/noticetrack/internal/db"
	"github.com/oslri/noticetrack/internal/domain"
	"github.com/spf13/viper"
)

// HTTPConfig holds settings for the read-side HTTP surface.
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Config is everything the service needs from its environment: database
// settings, the HTTP surface, the category/channel name maps, and the
// window policy.
type Config struct {
	Database       db.Config
	HTTP           HTTPConfig
	Lookups        domain.Lookups
	Windows        domain.WindowPolicy
	MigrationsPath string
}

// Load reads config.yaml from configPath, with environment overrides
// (prefix NOTICETRACK). Missing file or keys fall back to defaults.
func Load(configPath string) (Config, error) {
	cfg := Config{
		Database:       db.DefaultConfig(),
		HTTP:           HTTPConfig{Addr: ":8080", AllowedOrigins: []string{"http://localhost:3000"}},
		Lookups:        domain.DefaultLookups(),
		Windows:        domain.DefaultWindowPolicy(),
		MigrationsPath: "./migrations",
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv() // allow environment overrides
	v.SetEnvPrefix("NOTICETRACK")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("http.addr")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("http.addr") {
		cfg.HTTP.Addr = v.GetString("http.addr")
	}
	if v.IsSet("http.allowed_origins") {
		cfg.HTTP.AllowedOrigins = v.GetStringSlice("http.allowed_origins")
	}

	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}

	if v.IsSet("lookups.categories") {
		names, err := intKeyedMap(v.GetStringMapString("lookups.categories"))
		if err != nil {
			return Config{}, fmt.Errorf("invalid lookups.categories: %w", err)
		}
		cfg.Lookups.CategoryNames = names
	}
	if v.IsSet("lookups.channels") {
		names, err := intKeyedMap(v.GetStringMapString("lookups.channels"))
		if err != nil {
			return Config{}, fmt.Errorf("invalid lookups.channels: %w", err)
		}
		cfg.Lookups.ChannelNames = names
	}

	if v.IsSet("windows.delivery_pre_window") {
		cfg.Windows.DeliveryPreWindow = v.GetDuration("windows.delivery_pre_window")
	}
	if v.IsSet("windows.delivery_post_window") {
		cfg.Windows.DeliveryPostWindow = v.GetDuration("windows.delivery_post_window")
	}
	if v.IsSet("windows.silent_success_cutoff") {
		cfg.Windows.SilentSuccessCutoff = v.GetDuration("windows.silent_success_cutoff")
	}
	if v.IsSet("windows.verification_slack_days") {
		cfg.Windows.VerificationSlackDays = v.GetInt("windows.verification_slack_days")
	}
	if v.IsSet("windows.bucket_cap") {
		cfg.Windows.BucketCap = v.GetInt("windows.bucket_cap")
	}

	return cfg, nil
}

func intKeyedMap(raw map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for key, name := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("key %q is not an integer id", key)
		}
		out[id] = name
	}
	return out, nil
}
