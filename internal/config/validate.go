package config

import (
	"fmt"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535] (got %d)", c.Server.Port)
	}

	if err := c.Scraper.validate(); err != nil {
		return fmt.Errorf("scraper: %w", err)
	}

	if err := c.Analytics.validate(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}

	return nil
}

func (s *ScraperConfig) validate() error {
	if s.Interval < time.Minute {
		return fmt.Errorf("interval must be at least 1m (got %s)", s.Interval)
	}
	if s.RequestDelay < 0 {
		return fmt.Errorf("request_delay must be >= 0 (got %s)", s.RequestDelay)
	}
	if s.MaxConcurrentFetches < 1 {
		return fmt.Errorf("max_concurrent_fetches must be >= 1 (got %d)", s.MaxConcurrentFetches)
	}
	if s.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0 (got %d)", s.RetryAttempts)
	}
	if s.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max_consecutive_failures must be >= 0 (got %d)", s.MaxConsecutiveFailures)
	}
	return nil
}

func (a *AnalyticsConfig) validate() error {
	if a.GrowthWindowDays < 1 {
		return fmt.Errorf("growth_window_days must be >= 1 (got %d)", a.GrowthWindowDays)
	}
	if a.MinOverlap < 0 || a.MinOverlap > 100 {
		return fmt.Errorf("min_overlap must be in [0, 100] (got %v)", a.MinOverlap)
	}
	if a.ResonanceLimit < 1 {
		return fmt.Errorf("resonance_limit must be >= 1 (got %d)", a.ResonanceLimit)
	}
	return nil
}
