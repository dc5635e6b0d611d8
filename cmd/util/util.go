package util

import (
	"fmt"
	"strings"

	"github.com/hearthchat/hearth/sync/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupSyncFlags adds the sync engine configuration flags to a command
func SetupSyncFlags(cmd *cobra.Command) {
	defaults := common.DefaultSyncConfig()

	key := "timeout-min"
	cmd.PersistentFlags().Duration(key, defaults.TimeoutMin, WrapString("Lower clamp for client-requested long-poll timeouts"))

	key = "timeout-max"
	cmd.PersistentFlags().Duration(key, defaults.TimeoutMax, WrapString("Upper clamp for client-requested long-poll timeouts"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitEnvConfig initializes configuration from environment variables
func InitEnvConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("hearth")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetSyncConfig reads the engine configuration from viper
func GetSyncConfig() (common.SyncConfig, error) {
	cfg := common.SyncConfig{
		TimeoutMin: viper.GetDuration("timeout-min"),
		TimeoutMax: viper.GetDuration("timeout-max"),
		Serializer: viper.GetString("serializer"),
		LogLevel:   viper.GetString("log-level"),
	}

	if cfg.TimeoutMin <= 0 || cfg.TimeoutMax < cfg.TimeoutMin {
		return cfg, fmt.Errorf("invalid timeout clamp: min %s, max %s", cfg.TimeoutMin, cfg.TimeoutMax)
	}
	switch cfg.Serializer {
	case "json", "gob":
	default:
		return cfg, fmt.Errorf("invalid serializer %s", cfg.Serializer)
	}

	return cfg, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
