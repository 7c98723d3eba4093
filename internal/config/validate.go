package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Account.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("account: %w", err))
	}
	if err := c.Defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	if err := c.Dispatch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("dispatch: %w", err))
	}
	if err := c.Watch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("watch: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks AccountConfig for errors.
func (c *AccountConfig) Validate() error {
	if strings.ContainsAny(c.Site, " /") {
		return fmt.Errorf("invalid site: %s (must be a bare domain like amazon.com)", c.Site)
	}
	return nil
}

// Validate checks DefaultsConfig for errors.
func (c *DefaultsConfig) Validate() error {
	if c.TTSVolume > 100 {
		return errors.New("tts_volume must be at most 100")
	}
	if c.StandardVolume > 100 {
		return errors.New("standard_volume must be at most 100")
	}
	return nil
}

// Validate checks DispatchConfig for errors.
func (c *DispatchConfig) Validate() error {
	if c.HistorySize < 0 {
		return errors.New("history_size must be non-negative")
	}
	return nil
}

// Validate checks WatchConfig for errors.
func (c *WatchConfig) Validate() error {
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}
