package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainconfig "sitemap-sync/domain/config"
)

// LoadDomainConfig builds the domain tunables. The order, lowest priority
// first: defaults, the YAML file at path (skipped when path is empty),
// SYNC_* environment variables.
func LoadDomainConfig(path string) (*domainconfig.DomainConfig, error) {
	cfg := domainconfig.DefaultDomainConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read domain config %s: %w", path, err)
		}
		if err := decodeDomainConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse domain config %s: %w", path, err)
		}
	}

	applyDomainEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("domain configuration validation failed: %w", err)
	}
	return cfg, nil
}

// decodeDomainConfig overlays YAML onto cfg. Unknown keys are rejected so a
// typo never silently falls back to a default.
func decodeDomainConfig(data []byte, cfg *domainconfig.DomainConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func applyDomainEnv(cfg *domainconfig.DomainConfig) {
	cfg.DebounceDelay = getEnvDuration("SYNC_DEBOUNCE_DELAY", cfg.DebounceDelay)
	cfg.MaxRetries = getEnvInt("SYNC_MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryBaseDelay = getEnvDuration("SYNC_RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	cfg.RetryMaxDelay = getEnvDuration("SYNC_RETRY_MAX_DELAY", cfg.RetryMaxDelay)
	cfg.SavedDisplayDuration = getEnvDuration("SYNC_SAVED_DISPLAY", cfg.SavedDisplayDuration)
	cfg.RequestTimeout = getEnvDuration("SYNC_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxHistorySize = getEnvInt("SYNC_MAX_HISTORY", cfg.MaxHistorySize)
	cfg.MaxSlugLength = getEnvInt("SYNC_MAX_SLUG_LENGTH", cfg.MaxSlugLength)
	cfg.CascadeDeletes = getEnvBool("SYNC_CASCADE_DELETES", cfg.CascadeDeletes)
	cfg.PersistHistoryRestores = getEnvBool("SYNC_PERSIST_HISTORY_RESTORES", cfg.PersistHistoryRestores)
	cfg.ValidateSiblingSlugs = getEnvBool("SYNC_VALIDATE_SIBLING_SLUGS", cfg.ValidateSiblingSlugs)
}
