package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dbailuk/arcgis-automation/cmd"
	"github.com/dbailuk/arcgis-automation/internal/config"
	"github.com/dbailuk/arcgis-automation/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	// Load a local .env first so the portal token and SMTP password can
	// stay out of the YAML config. Missing files are fine.
	_ = godotenv.Load()

	// 1. Initialize application configuration
	if err := config.Initialize(configFileFromArgs()); err != nil {
		// For app configuration errors, we print to stderr and exit since we can't continue
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logging based on application configuration
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	// Log startup information
	logger.LogInfo("Application started", map[string]interface{}{
		"version": "0.1.0",
		"portal":  config.Instance.Portal.URL,
	})

	// 3. Dispatch to the CLI
	cmd.Execute()

	// Ensure logs are flushed before exit
	logger.Sync()
}

// initLogging initializes the logger based on configuration settings
func initLogging() error {
	logConfig := logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	}

	return logger.InitLogger(logConfig)
}

// configFileFromArgs resolves the --config flag before cobra parses the
// command line, so configuration is in place for every subcommand. Falls
// back to the ARCGIS_AUTOMATION_CONFIG environment variable.
func configFileFromArgs() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}

		// Check for --config=file syntax
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}

	return os.Getenv("ARCGIS_AUTOMATION_CONFIG")
}
