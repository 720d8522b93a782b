package persistence

import (
	"time"

	"sitemap-sync/domain/config"
)

// Status is the externally visible save state
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Settings are the timing rules of a manager
type Settings struct {
	DebounceDelay        time.Duration
	MaxRetries           int
	RetryBaseDelay       time.Duration
	RetryMaxDelay        time.Duration
	SavedDisplayDuration time.Duration
	// RequestTimeout bounds each save call. Zero disables it.
	RequestTimeout time.Duration
}

// DefaultSettings mirrors config.DefaultDomainConfig
func DefaultSettings() Settings {
	return SettingsFromConfig(config.DefaultDomainConfig())
}

// SettingsFromConfig extracts the persistence settings from a domain config
func SettingsFromConfig(cfg *config.DomainConfig) Settings {
	return Settings{
		DebounceDelay:        cfg.DebounceDelay,
		MaxRetries:           cfg.MaxRetries,
		RetryBaseDelay:       cfg.RetryBaseDelay,
		RetryMaxDelay:        cfg.RetryMaxDelay,
		SavedDisplayDuration: cfg.SavedDisplayDuration,
		RequestTimeout:       cfg.RequestTimeout,
	}
}

// RetryDelay returns the wait before retry number attempt (1-based):
// base doubled per attempt, capped at RetryMaxDelay when that is set.
func (s Settings) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := s.RetryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if s.RetryMaxDelay > 0 && delay >= s.RetryMaxDelay {
			break
		}
	}
	if s.RetryMaxDelay > 0 && delay > s.RetryMaxDelay {
		delay = s.RetryMaxDelay
	}
	return delay
}
