package config

import (
	"fmt"
	"time"
)

// DomainConfig holds the tunable rules of the sync engine
type DomainConfig struct {
	// Persistence timing
	DebounceDelay        time.Duration `yaml:"debounce_delay"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay        time.Duration `yaml:"retry_max_delay"`
	SavedDisplayDuration time.Duration `yaml:"saved_display_duration"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`

	// History
	MaxHistorySize int `yaml:"max_history_size"`

	// Node constraints
	MaxSlugLength int `yaml:"max_slug_length"`

	// Behaviour switches
	CascadeDeletes         bool `yaml:"cascade_deletes"`
	PersistHistoryRestores bool `yaml:"persist_history_restores"`
	ValidateSiblingSlugs   bool `yaml:"validate_sibling_slugs"`
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DebounceDelay:        time.Second,
		MaxRetries:           3,
		RetryBaseDelay:       2 * time.Second,
		RetryMaxDelay:        6 * time.Second,
		SavedDisplayDuration: 2 * time.Second,
		RequestTimeout:       30 * time.Second,

		MaxHistorySize: 50,

		MaxSlugLength: 100,

		CascadeDeletes:         true,
		PersistHistoryRestores: true,
		ValidateSiblingSlugs:   true,
	}
}

// Validate rejects settings the engine cannot run with
func (c *DomainConfig) Validate() error {
	if c.DebounceDelay < 0 {
		return fmt.Errorf("debounce delay must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if c.RetryMaxDelay > 0 && c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry max delay %s is below base delay %s", c.RetryMaxDelay, c.RetryBaseDelay)
	}
	if c.MaxHistorySize < 1 {
		return fmt.Errorf("max history size must be at least 1")
	}
	return nil
}

// Clone returns an independent copy
func (c *DomainConfig) Clone() *DomainConfig {
	out := *c
	return &out
}
