package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dbailuk/arcgis-automation/internal/config"
	"github.com/dbailuk/arcgis-automation/internal/logger"
	"github.com/dbailuk/arcgis-automation/internal/mail"
	"github.com/dbailuk/arcgis-automation/internal/portal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "arcgis-automation",
	Short: "Operational automation for an ArcGIS Enterprise portal",
	Long: `arcgis-automation bundles the recurring operator tasks for an
ArcGIS Enterprise portal: publishing portal-hosted shapefiles as feature
services with conflict reconciliation, probing portal and server health
with PDF/email reporting, and auditing user accounts for inactivity.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// CLI flags can override config settings
		debug, _ := cmd.Flags().GetBool("debug")
		logFormat, _ := cmd.Flags().GetString("log-format")

		// If CLI flags were explicitly provided, update the global config
		if cmd.Flags().Changed("debug") {
			config.Instance.Debug = debug
		}

		if cmd.Flags().Changed("log-format") {
			config.Instance.LogFormat = logFormat
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		os.Exit(1)
	}
}

func init() {
	// Config file flag; the file itself is resolved in main before cobra
	// runs, the flag exists so it shows up in help and parses cleanly.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")

	// Debug flag
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Log format flag
	rootCmd.PersistentFlags().String("log-format", "human", "Log format: json or human")

	// Bind flags to viper settings
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Register subcommands
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(versionCmd)
}

// connectPortal opens the shared portal session every subcommand needs.
// A failure here aborts the whole run.
func connectPortal(ctx context.Context) (*portal.Client, error) {
	if err := config.Validate(&config.Instance); err != nil {
		return nil, err
	}
	client, err := portal.Connect(ctx, config.Instance.Portal.URL, config.Instance.Portal.Token, logger.Logger)
	if err != nil {
		logger.LogError("Failed to connect to ArcGIS Portal", err, map[string]interface{}{
			"portal": config.Instance.Portal.URL,
		})
		return nil, err
	}
	return client, nil
}

// newMailSender builds the report mailer from configuration.
func newMailSender() *mail.Sender {
	smtp := config.Instance.SMTP
	return mail.NewSender(smtp.Host, smtp.Port, smtp.Username, smtp.Password, smtp.Recipient, logger.Logger)
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("arcgis-automation v0.1.0")
	},
}
