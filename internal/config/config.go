package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/fsutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "arcgis-automation"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "ARCGIS_AUTOMATION"
)

// PublishItemConfig identifies one portal item to publish and the service
// name to publish it under. An empty ServiceName falls back to the item title
// with its file extension stripped.
type PublishItemConfig struct {
	ItemID      string `mapstructure:"item_id"`
	ServiceName string `mapstructure:"service_name"`
}

// EndpointConfig describes one endpoint probed by the health check.
type EndpointConfig struct {
	URL  string `mapstructure:"url"`
	Kind string `mapstructure:"kind"` // portal, server or healthcheck
}

// AppConfig holds the application configuration. It is populated once by
// Initialize and treated as read-only afterwards.
type AppConfig struct {
	// Core settings
	Debug      bool   `mapstructure:"debug"`
	LogFormat  string `mapstructure:"log_format"`
	LogFile    string `mapstructure:"log_file"`
	ReportsDir string `mapstructure:"reports_dir"`

	// Portal session settings
	Portal struct {
		URL            string `mapstructure:"url"`
		Token          string `mapstructure:"token"`
		ProbeShapefile string `mapstructure:"probe_shapefile"`
	} `mapstructure:"portal"`

	// Publish workflow settings
	Publish struct {
		Items             []PublishItemConfig `mapstructure:"items"`
		DefaultShareLevel string              `mapstructure:"default_share_level"`
		PollInterval      time.Duration       `mapstructure:"poll_interval"`
		DeleteTimeout     time.Duration       `mapstructure:"delete_timeout"`

		Metadata struct {
			Description string `mapstructure:"description"`
			Tags        string `mapstructure:"tags"`
			Categories  string `mapstructure:"categories"`
		} `mapstructure:"metadata"`
	} `mapstructure:"publish"`

	// Health check settings
	Health struct {
		Endpoints []EndpointConfig `mapstructure:"endpoints"`
	} `mapstructure:"health"`

	// SMTP settings for report delivery
	SMTP struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		Username  string `mapstructure:"username"`
		Password  string `mapstructure:"password"`
		Recipient string `mapstructure:"recipient"`
	} `mapstructure:"smtp"`

	// User audit settings
	Audit struct {
		InactiveThresholdDays int `mapstructure:"inactive_threshold_days"`
		MaxUsers              int `mapstructure:"max_users"`
	} `mapstructure:"audit"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		// Create a new viper instance
		v = viper.New()

		// Set default values
		setDefaults(v)

		// Load configuration from file if specified
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			// Set config name and type
			v.SetConfigName(AppName)
			v.SetConfigType("yaml")

			// Add default search paths
			addSearchPaths(v)
		}

		// Set up environment variables
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()

		// Read configuration file
		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				// Only capture error if the config file was found but couldn't be read
				err = fmt.Errorf("error reading config file: %w", readErr)
			}
			// Config file not found, using defaults and environment variables
			ConfigLoaded = false
			ConfigFile = ""
		} else {
			ConfigLoaded = true
			ConfigFile = v.ConfigFileUsed()
		}

		// Unmarshal config into struct
		if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
			err = fmt.Errorf("error parsing config: %w", unmarshalErr)
			return
		}

		// Ensure required directories exist
		ensureDirectories()
	})

	return err
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("reports_dir", "logs_reports")
	v.SetDefault("log_file", filepath.Join("logs_reports", "arcgis_automation.log"))

	// Publish defaults
	v.SetDefault("publish.default_share_level", "org")
	v.SetDefault("publish.poll_interval", "5s")
	v.SetDefault("publish.delete_timeout", "180s")
	v.SetDefault("publish.metadata.description", "Service published using configuration settings.")
	v.SetDefault("publish.metadata.tags", "configured,arcgis,service")
	v.SetDefault("publish.metadata.categories", "Example")

	// SMTP defaults
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)

	// Audit defaults
	v.SetDefault("audit.inactive_threshold_days", 70)
	v.SetDefault("audit.max_users", 1000)
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	// Add user config directory
	v.AddConfigPath("$HOME/.config/" + AppName)

	// Add system-wide config directory
	v.AddConfigPath("/etc/" + AppName)
}

// ensureDirectories creates necessary directories based on configuration
func ensureDirectories() {
	// Create reports directory
	if Instance.ReportsDir != "" {
		_ = fsutil.CreateDirIfNotExists(Instance.ReportsDir)
	}

	// Create log directory
	if Instance.LogFile != "" {
		logDir := filepath.Dir(Instance.LogFile)
		_ = fsutil.CreateDirIfNotExists(logDir)
	}
}

// Validate checks settings that every command depends on
func Validate(cfg *AppConfig) error {
	if cfg.Portal.URL == "" {
		return fmt.Errorf("portal.url is required")
	}
	if cfg.Portal.Token == "" {
		return fmt.Errorf("portal.token is required")
	}
	return nil
}
