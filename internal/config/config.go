package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Dukascopy struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
}

type Binance struct {
	Enabled              bool   `json:"enabled"`
	BaseURL              string `json:"base_url"`
	PageSize             int    `json:"page_size"`
	MaxPages             int    `json:"max_pages"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Alpaca struct {
	Enabled   bool   `json:"enabled"`
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"`
	Feed      string `json:"feed"`
}

type Cache struct {
	TTLSeconds int `json:"ttl_sec"`
	MaxEntries int `json:"max_entries"`
}

type Config struct {
	Server    Server    `json:"server"`
	Dukascopy Dukascopy `json:"dukascopy"`
	Binance   Binance   `json:"binance"`
	Alpaca    Alpaca    `json:"alpaca"`
	Cache     Cache     `json:"cache"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 60},
		Dukascopy: Dukascopy{
			Enabled: true,
		},
		Binance: Binance{
			Enabled:              true,
			PageSize:             1000,
			MaxPages:             500,
			MaxRequestsPerMinute: 1100,
			Burst:                50,
		},
		Alpaca: Alpaca{
			Enabled: true,
			Feed:    "sip",
		},
		Cache: Cache{TTLSeconds: 300, MaxEntries: 10000},
	}
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields so
// credentials stay out of config files.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := envInt("REQUEST_TIMEOUT_SEC"); v > 0 {
		cfg.Server.RequestTimeoutSec = v
	}

	if v := os.Getenv("DUKASCOPY_ENABLED"); v != "" {
		cfg.Dukascopy.Enabled = envBool(v, cfg.Dukascopy.Enabled)
	}
	if v := os.Getenv("DUKASCOPY_BASE_URL"); v != "" {
		cfg.Dukascopy.BaseURL = v
	}

	if v := os.Getenv("BINANCE_ENABLED"); v != "" {
		cfg.Binance.Enabled = envBool(v, cfg.Binance.Enabled)
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.BaseURL = v
	}
	if v := envInt("BINANCE_PAGE_SIZE"); v > 0 {
		cfg.Binance.PageSize = v
	}
	if v := envInt("BINANCE_MAX_PAGES"); v > 0 {
		cfg.Binance.MaxPages = v
	}
	if v := envInt("BINANCE_MAX_RPM"); v >= 0 && os.Getenv("BINANCE_MAX_RPM") != "" {
		cfg.Binance.MaxRequestsPerMinute = v
	}
	if v := envInt("BINANCE_BURST"); v > 0 {
		cfg.Binance.Burst = v
	}

	if v := os.Getenv("ALPACA_ENABLED"); v != "" {
		cfg.Alpaca.Enabled = envBool(v, cfg.Alpaca.Enabled)
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		cfg.Alpaca.SecretKey = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_FEED"); v != "" {
		cfg.Alpaca.Feed = v
	}

	if v := envInt("CACHE_TTL_SEC"); v >= 0 && os.Getenv("CACHE_TTL_SEC") != "" {
		cfg.Cache.TTLSeconds = v
	}
	if v := envInt("CACHE_MAX_ENTRIES"); v > 0 {
		cfg.Cache.MaxEntries = v
	}
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return -1
	}
	var x int
	fmt.Sscanf(v, "%d", &x)
	return x
}

func envBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}
