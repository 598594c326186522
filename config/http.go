package config

import "fmt"

// HTTPConfig configures the scheduling API.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// RatePerSecond limits requests per client address; 0 disables limiting.
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
	// Token, when set, is required as a Bearer token on API routes.
	Token string `json:"token"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RatePerSecond > 0 && c.Burst <= 0 {
		c.Burst = 1
	}
}

func (c HTTPConfig) Validate() error {
	if c.RatePerSecond < 0 {
		return fmt.Errorf("rate_per_second must not be negative")
	}
	return nil
}
