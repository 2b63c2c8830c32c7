package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the server config file
type TOMLConfig struct {
	Server   ServerSection   `toml:"server"`
	Limits   LimitsSection   `toml:"limits"`
	Channels ChannelsSection `toml:"channels"`
}

type ServerSection struct {
	TCPPort        int    `toml:"tcp_port"`
	HTTPPort       int    `toml:"http_port"`
	MaxConnections int    `toml:"max_connections"`
	AdminUser      string `toml:"admin_user"`
	AdminEmail     string `toml:"admin_email"`
	AdminPassword  string `toml:"admin_password"`
}

type LimitsSection struct {
	MaxUsers           int `toml:"max_users"`
	MaxChannels        int `toml:"max_channels"`
	MessageLogCapacity int `toml:"message_log_capacity"`
	MaxMessageLength   int `toml:"max_message_length"`
	MaxReactions       int `toml:"max_reactions"`
	DefaultMuteMinutes int `toml:"default_mute_minutes"`
}

type ChannelsSection struct {
	DefaultChannels []string `toml:"default_channels"`
}

// DefaultTOMLConfig returns the default configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			TCPPort:        8888,
			HTTPPort:       9090,
			MaxConnections: 32,
			AdminUser:      "admin",
			AdminEmail:     "admin@example.com",
			AdminPassword:  "", // no admin account seeded unless set
		},
		Limits: LimitsSection{
			MaxUsers:           100,
			MaxChannels:        30,
			MessageLogCapacity: 1000,
			MaxMessageLength:   256,
			MaxReactions:       10,
			DefaultMuteMinutes: 10,
		},
		Channels: ChannelsSection{
			DefaultChannels: []string{"general", "random", "help"},
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates a default file if
// none exists, and applies environment variable overrides
func LoadConfig(path string) (TOMLConfig, error) {
	// Expand ~ in path
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return TOMLConfig{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			// Could not write (permissions, read-only fs) - still run on
			// defaults.
			return applyEnvOverrides(config), nil
		}
		return applyEnvOverrides(config), nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnvOverrides(config), nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables follow the pattern: DISPUTE_SECTION_KEY
// Example: DISPUTE_SERVER_TCP_PORT=9000
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	// Server section
	if val := os.Getenv("DISPUTE_SERVER_TCP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.TCPPort = port
		}
	}
	if val := os.Getenv("DISPUTE_SERVER_HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.HTTPPort = port
		}
	}
	if val := os.Getenv("DISPUTE_SERVER_MAX_CONNECTIONS"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Server.MaxConnections = limit
		}
	}
	if val := os.Getenv("DISPUTE_SERVER_ADMIN_USER"); val != "" {
		config.Server.AdminUser = val
	}
	if val := os.Getenv("DISPUTE_SERVER_ADMIN_EMAIL"); val != "" {
		config.Server.AdminEmail = val
	}
	if val := os.Getenv("DISPUTE_SERVER_ADMIN_PASSWORD"); val != "" {
		config.Server.AdminPassword = val
	}

	// Limits section
	if val := os.Getenv("DISPUTE_LIMITS_MAX_USERS"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxUsers = limit
		}
	}
	if val := os.Getenv("DISPUTE_LIMITS_MAX_CHANNELS"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxChannels = limit
		}
	}
	if val := os.Getenv("DISPUTE_LIMITS_MESSAGE_LOG_CAPACITY"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MessageLogCapacity = limit
		}
	}
	if val := os.Getenv("DISPUTE_LIMITS_MAX_MESSAGE_LENGTH"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxMessageLength = limit
		}
	}
	if val := os.Getenv("DISPUTE_LIMITS_MAX_REACTIONS"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxReactions = limit
		}
	}
	if val := os.Getenv("DISPUTE_LIMITS_DEFAULT_MUTE_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil {
			config.Limits.DefaultMuteMinutes = minutes
		}
	}

	// Channels section
	if val := os.Getenv("DISPUTE_CHANNELS_DEFAULT_CHANNELS"); val != "" {
		names := strings.Split(val, ",")
		for i, name := range names {
			names[i] = strings.TrimSpace(name)
		}
		config.Channels.DefaultChannels = names
	}

	return config
}

// writeDefaultConfig writes a commented default config file
func writeDefaultConfig(path string, config TOMLConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	content := `# Dispute Server Configuration
# This file was auto-generated with default values.
# Restart the server for changes to take effect.
#
# Environment variables can override these settings:
# DISPUTE_SECTION_KEY (e.g., DISPUTE_SERVER_TCP_PORT=9000)

[server]
# Port for client TCP connections
tcp_port = 8888

# Port for the internal HTTP server (/metrics, /ws). Never expose /metrics
# publicly.
http_port = 9090

# Maximum concurrent client connections (session table size)
max_connections = 32

# Admin account seeded at startup. No admin is created unless a password is
# set (prefer DISPUTE_SERVER_ADMIN_PASSWORD over writing it here).
admin_user = "admin"
admin_email = "admin@example.com"
# admin_password = ""

[limits]
# Maximum registered users
max_users = 100

# Maximum channels
max_channels = 30

# Bounded message log per channel; the oldest message is evicted when full
message_log_capacity = 1000

# Maximum message length in bytes
max_message_length = 256

# Maximum distinct reaction symbols per message
max_reactions = 10

# Mute duration applied when a mute request specifies no positive duration
default_mute_minutes = 10

[channels]
# Channels created at startup; these are protected from deletion
default_channels = ["general", "random", "help"]
`

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
