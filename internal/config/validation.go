package config

import (
	"fmt"
	"net/url"
	"slices"
)

// Validate checks the resolved configuration.
func Validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr is required")
	}

	for name, value := range map[string]string{
		"publicUrl":     cfg.PublicURL,
		"authServerUrl": cfg.AuthServerURL,
		"oauthUrl":      cfg.OAuthURL,
		"profileUrl":    cfg.ProfileURL,
	} {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.Parse(value); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}

	if cfg.MetricsSampleRate < 0 || cfg.MetricsSampleRate > 1 {
		return fmt.Errorf("metricsSampleRate must be in [0,1], got %v", cfg.MetricsSampleRate)
	}
	if cfg.SentrySampleRate < 0 || cfg.SentrySampleRate > 1 {
		return fmt.Errorf("sentrySampleRate must be in [0,1], got %v", cfg.SentrySampleRate)
	}

	if len(cfg.SupportedLanguages) == 0 {
		return fmt.Errorf("supportedLanguages must not be empty")
	}
	if cfg.DefaultLanguage != "" && !slices.Contains(cfg.SupportedLanguages, cfg.DefaultLanguage) {
		return fmt.Errorf("defaultLanguage %q is not in supportedLanguages", cfg.DefaultLanguage)
	}

	switch cfg.Storage.Kind {
	case StorageMemory, "":
	case StorageFirestore:
		if cfg.Storage.ProjectID == "" {
			return fmt.Errorf("storage.projectId is required for firestore storage")
		}
	case StorageRedis:
		if cfg.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redisAddr is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown storage kind: %s", cfg.Storage.Kind)
	}

	return nil
}
