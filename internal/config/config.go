package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	HTTPServer  `yaml:"http_server"`
	Calendar    `yaml:"calendar"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Calendar struct {
	GridStartHour int     `yaml:"grid_start_hour" env-default:"7"`
	GridEndHour   int     `yaml:"grid_end_hour" env-default:"21"`
	PxPerMinute   float64 `yaml:"px_per_minute" env-default:"1"`
	MinHeightPx   float64 `yaml:"min_height_px" env-default:"15"`
	// WeekStart is the first weekday of a week grid, 0 = Sunday.
	WeekStart      int           `yaml:"week_start" env-default:"1"`
	RefreshCron    string        `yaml:"refresh_cron" env:"REFRESH_CRON" env-default:"@every 5m"`
	StaffCacheTTL  time.Duration `yaml:"staff_cache_ttl" env-default:"5m"`
	LockTTL        time.Duration `yaml:"lock_ttl" env-default:"10s"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" env-default:"10s"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	return &cfg
}
