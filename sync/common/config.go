package common

import (
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Sync engine configuration struct
// --------------------------------------------------------------------------

// SyncConfig holds all configuration parameters for the sync engine.
type SyncConfig struct {
	// Long-poll timeout clamp: client-requested timeouts are raised to
	// TimeoutMin and capped at TimeoutMax.
	TimeoutMin time.Duration
	TimeoutMax time.Duration

	// Serializer selects the codec for persisted connection records
	// ("json" or "gob").
	Serializer string

	// Logging configuration
	LogLevel string
}

// DefaultSyncConfig returns the default engine configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		TimeoutMin: 100 * time.Millisecond,
		TimeoutMax: 60 * time.Second,
		Serializer: "json",
		LogLevel:   "info",
	}
}

// ClampTimeout applies the configured bounds to a client-requested
// long-poll timeout. Zero stays zero: the client asked not to block.
func (c *SyncConfig) ClampTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return 0
	}
	if requested < c.TimeoutMin {
		return c.TimeoutMin
	}
	if requested > c.TimeoutMax {
		return c.TimeoutMax
	}
	return requested
}

// String returns a formatted string representation of the configuration
func (c *SyncConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Long Poll")
	addField("Timeout Min", c.TimeoutMin.String())
	addField("Timeout Max", c.TimeoutMax.String())

	addSection("Persistence")
	addField("Serializer", c.Serializer)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
