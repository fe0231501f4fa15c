package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/internal/cli"
	"github.com/pthm/sqlgate/internal/logger"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlgate",
	Short: "Validated SQL from untrusted filters",
	Long: `sqlgate - Validated SQL from untrusted filters

sqlgate compiles JSON filters, sort strings and cursors into parameterized
SELECT, INSERT, UPDATE and DELETE statements for PostgreSQL and SQLite.
Every identifier is validated and every value is bound as a parameter.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		logCfg := cfg.LoggerConfig()
		switch {
		case quiet:
			logCfg.Level = "error"
		case verbose > 0:
			logCfg.Level = "debug"
		}
		logCfg.Output = cmd.ErrOrStderr()
		logger.Init(logCfg)
		logger.Debug("configuration loaded", "path", configPath, "driver", cfg.Database.Driver)

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupQuery   = "query"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover sqlgate.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Query commands
	compileCmd.GroupID = groupQuery
	validateCmd.GroupID = groupQuery
	queryCmd.GroupID = groupQuery
	cursorCmd.GroupID = groupQuery
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(cursorCmd)

	// Utility commands
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.ExitWithError(err)
	}
}

// resolveDialect returns the dialect named by the flag, or the configured one.
func resolveDialect(flagDialect string) (sqlgate.Dialect, error) {
	if flagDialect != "" {
		d, err := sqlgate.ParseDialect(flagDialect)
		if err != nil {
			return nil, cli.RequestError("--dialect", err)
		}
		return d, nil
	}
	d, err := cfg.ResolvedDialect()
	if err != nil {
		return nil, cli.ConfigError("dialect", err)
	}
	return d, nil
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}
