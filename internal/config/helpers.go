package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// MeanMode returns the parsed profile mean mode
func (c *Config) MeanMode() profile.MeanMode {
	mode, err := profile.ParseMeanMode(c.Profile.MeanMode)
	if err != nil {
		return profile.MeanOverTexts
	}
	return mode
}

// ExtractorEnabled reports whether the named extractor should run
func (c *AnalysisConfig) ExtractorEnabled(name string) bool {
	if len(c.Extractors) == 0 {
		return true
	}
	for _, n := range c.Extractors {
		if n == name {
			return true
		}
	}
	return false
}

// Summary returns a short description of the selected backends for startup logs
func (c *Config) Summary() string {
	queue := "disabled"
	if c.Queue.Enabled {
		queue = c.Queue.Type
	}
	return fmt.Sprintf("store=%s queue=%s mean_mode=%s", c.Store.Type, queue, c.MeanMode())
}
