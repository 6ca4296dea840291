// Package config loads the process's boot-time configuration. This is
// distinct from the database-backed SystemConfig key/value table (see
// internal/storage), which can be hot-reloaded without a restart; this
// package only ever supplies the defaults a fresh process starts with.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of boot-time settings, inherited from the
// teacher's flat DatabaseURL/RedisURL/Port/BaseURL/FrontendURL fields and
// extended with cache, click-pipeline and IPC knobs.
type Config struct {
	DatabaseURL  string
	RedisURL     string
	Port         string
	BaseURL      string
	FrontendURL  string
	AdminToken   string
	IsProduction bool
	RateLimitPerMin int

	Cache  CacheConfig
	Clicks ClicksConfig
	IPC    IPCConfig
	GeoIP  GeoIPConfig
}

type CacheConfig struct {
	ExistenceFilterCapacity uint
	ExistenceFilterFPRate   float64
	ObjectCacheCapacity     int
	ObjectCacheTTL          time.Duration
	NegativeCacheCapacity   int
	NegativeCacheTTL        time.Duration
}

type ClicksConfig struct {
	ChannelCapacity int
	BatchSize       int
	FlushInterval   time.Duration
	RetentionWindow time.Duration
}

type IPCConfig struct {
	SocketPath   string
	LockfilePath string
	DefaultTimeout time.Duration
	ReloadTimeout  time.Duration
}

type GeoIPConfig struct {
	MMDBPath        string
	ExternalAPIURL  string
	ExternalAPIKey  string
	CacheTTL        time.Duration
	CacheCapacity   int
}

// Load reads configuration from environment variables (prefix SHORTLINKER_)
// and, if present, ./config.yaml, falling back to the defaults below.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHORTLINKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	setDefaults(v)

	if v.GetString("database_url") == "" {
		return nil, fmt.Errorf("SHORTLINKER_DATABASE_URL is required")
	}

	cfg := &Config{
		DatabaseURL:     v.GetString("database_url"),
		RedisURL:        v.GetString("redis_url"),
		Port:            v.GetString("port"),
		BaseURL:         v.GetString("base_url"),
		FrontendURL:     v.GetString("frontend_url"),
		AdminToken:      v.GetString("admin_token"),
		IsProduction:    v.GetString("env") == "production",
		RateLimitPerMin: v.GetInt("rate_limit_per_minute"),
		Cache: CacheConfig{
			ExistenceFilterCapacity: v.GetUint("cache.existence_filter_capacity"),
			ExistenceFilterFPRate:   v.GetFloat64("cache.existence_filter_fp_rate"),
			ObjectCacheCapacity:     v.GetInt("cache.object_cache_capacity"),
			ObjectCacheTTL:          v.GetDuration("cache.object_cache_ttl"),
			NegativeCacheCapacity:   v.GetInt("cache.negative_cache_capacity"),
			NegativeCacheTTL:        v.GetDuration("cache.negative_cache_ttl"),
		},
		Clicks: ClicksConfig{
			ChannelCapacity: v.GetInt("clicks.channel_capacity"),
			BatchSize:       v.GetInt("clicks.batch_size"),
			FlushInterval:   v.GetDuration("clicks.flush_interval"),
			RetentionWindow: v.GetDuration("clicks.retention_window"),
		},
		IPC: IPCConfig{
			SocketPath:     v.GetString("ipc.socket_path"),
			LockfilePath:   v.GetString("ipc.lockfile_path"),
			DefaultTimeout: v.GetDuration("ipc.default_timeout"),
			ReloadTimeout:  v.GetDuration("ipc.reload_timeout"),
		},
		GeoIP: GeoIPConfig{
			MMDBPath:       v.GetString("geoip.mmdb_path"),
			ExternalAPIURL: v.GetString("geoip.external_api_url"),
			ExternalAPIKey: v.GetString("geoip.external_api_key"),
			CacheTTL:       v.GetDuration("geoip.cache_ttl"),
			CacheCapacity:  v.GetInt("geoip.cache_capacity"),
		},
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("port", "8080")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("env", "development")
	v.SetDefault("rate_limit_per_minute", 100)

	v.SetDefault("cache.existence_filter_capacity", uint(10_000))
	v.SetDefault("cache.existence_filter_fp_rate", 0.001)
	v.SetDefault("cache.object_cache_capacity", 50_000)
	v.SetDefault("cache.object_cache_ttl", 10*time.Minute)
	v.SetDefault("cache.negative_cache_capacity", 50_000)
	v.SetDefault("cache.negative_cache_ttl", 2*time.Minute)

	v.SetDefault("clicks.channel_capacity", 4096)
	v.SetDefault("clicks.batch_size", 500)
	v.SetDefault("clicks.flush_interval", 5*time.Second)
	v.SetDefault("clicks.retention_window", 90*24*time.Hour)

	v.SetDefault("ipc.socket_path", "/tmp/shortlinker.sock")
	v.SetDefault("ipc.lockfile_path", "/tmp/shortlinker.pid")
	v.SetDefault("ipc.default_timeout", 5*time.Second)
	v.SetDefault("ipc.reload_timeout", 30*time.Second)

	v.SetDefault("geoip.cache_ttl", 15*time.Minute)
	v.SetDefault("geoip.cache_capacity", 10_000)
}
