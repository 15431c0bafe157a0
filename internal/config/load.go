package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fxawebapp/fxa-front/internal/log"
)

// Defaults returns the built-in configuration. File and environment values
// layer on top of it.
func Defaults() Config {
	return Config{
		Addr:                  ":3030",
		PublicURL:             "http://127.0.0.1:3030",
		AuthServerURL:         "http://127.0.0.1:9000",
		OAuthURL:              "http://127.0.0.1:9010",
		ProfileURL:            "http://127.0.0.1:1111",
		SupportedLanguages:    []string{"en"},
		DefaultLanguage:       "en",
		MetricsSampleRate:     1,
		SentrySampleRate:      1,
		VarPath:               "var",
		Storage:               StorageConfig{Kind: StorageMemory},
		ChannelRequestTimeout: 90 * time.Second,
	}
}

// Load reads configuration files named by the CONFIG_FILES environment
// variable (comma-separated, later files override earlier ones), or from the
// explicit paths given, then applies environment overrides and validates.
func Load(paths ...string) (Config, error) {
	if len(paths) == 0 {
		if env := os.Getenv("CONFIG_FILES"); env != "" {
			paths = strings.Split(env, ",")
		}
	}

	cfg := Defaults()
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if cfg.ChannelRequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.ChannelRequestTimeoutRaw)
		if err != nil {
			return Config{}, fmt.Errorf("parsing channelRequestTimeout: %w", err)
		}
		cfg.ChannelRequestTimeout = d
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	log.LogInfoWithFields("config", "Loaded config file", map[string]any{
		"path": path,
	})
	return nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		host := ""
		if i := strings.LastIndex(cfg.Addr, ":"); i >= 0 {
			host = cfg.Addr[:i]
		}
		cfg.Addr = host + ":" + port
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("FXA_URL"); v != "" {
		cfg.AuthServerURL = v
	}
	if v := os.Getenv("FXA_OAUTH_URL"); v != "" {
		cfg.OAuthURL = v
	}
	if v := os.Getenv("FXA_PROFILE_URL"); v != "" {
		cfg.ProfileURL = v
	}
	if v := os.Getenv("SUPPORTED_LANGUAGES"); v != "" {
		cfg.SupportedLanguages = strings.Split(v, ",")
	}
	if v := os.Getenv("VAR_PATH"); v != "" {
		cfg.VarPath = v
	}
}
