// Package cmd provides the CLI commands for qbconnect.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inercia/qbconnect/internal/appdir"
	"github.com/inercia/qbconnect/internal/client"
	"github.com/inercia/qbconnect/internal/config"
	"github.com/inercia/qbconnect/internal/logging"
)

var (
	// Global flags
	configPath string
	debug      bool
	logLevel   string
	logFile    string
	jsonLogs   bool

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "qbconnect",
	Short: "qbconnect - a qbXML client for the QuickBooks Online Edition gateway",
	Long: `qbconnect talks to the QuickBooks Online Edition AppGateway over
mutual-TLS HTTPS. It signs on with your connection ticket, manages the
short-lived session ticket for you, and sends qbXML requests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		effectiveLogLevel := "info"
		if logLevel != "" {
			effectiveLogLevel = logLevel
		} else if debug {
			effectiveLogLevel = "debug"
		}
		logCfg := logging.Config{Level: effectiveLogLevel, JSON: jsonLogs}
		if logFile != "" {
			logCfg.FileLog = &logging.FileLogConfig{Path: logFile}
		}
		if err := logging.Initialize(logCfg); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}

		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}

		// The ticket subcommands manage the keychain directly and work
		// without a config file.
		if cmd.Parent() != nil && cmd.Parent().Name() == "ticket" {
			return nil
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default: ~/.qbconnectrc)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to stderr)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs in JSON format")
}

// newClient builds a gateway client from the loaded configuration and
// resumes any persisted session.
func newClient() (*client.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	ticket, err := cfg.ResolveConnectionTicket()
	if err != nil {
		return nil, err
	}

	c, err := client.New(client.Config{
		URL:              cfg.Gateway.URL,
		CertFile:         cfg.Gateway.CertFile,
		KeyFile:          cfg.Gateway.KeyFile,
		CAFile:           cfg.Gateway.CAFile,
		ApplicationLogin: cfg.Application.Login,
		AppID:            cfg.Application.ID,
		AppVer:           cfg.Application.Version,
		Language:         cfg.Application.Language,
		ConnectionTicket: ticket,
	})
	if err != nil {
		return nil, err
	}

	sessionPath, err := appdir.SessionFilePath()
	if err != nil {
		return nil, err
	}
	if err := c.LoadSession(sessionPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Client().Warn("ignoring unreadable session file", "path", sessionPath, "error", err)
		}
	}
	return c, nil
}

// saveSession persists the client's session for the next invocation.
func saveSession(c *client.Client) {
	sessionPath, err := appdir.SessionFilePath()
	if err != nil {
		logging.Client().Warn("cannot resolve session file path", "error", err)
		return
	}
	if err := c.SaveSession(sessionPath); err != nil {
		logging.Client().Warn("cannot persist session", "path", sessionPath, "error", err)
	}
}
