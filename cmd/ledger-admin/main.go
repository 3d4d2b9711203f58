package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/content-ledger/pkg/ledger/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the ledger-admin command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledger-admin",
		Short: "Inspect the content ledger",
		Long: `Administrative tool for the content ledger.

Opens the repository configured by DATABASE_URL directly, so it works
against leveldb, sqlite and postgres stores without a running server.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewContentsCommand())
	rootCmd.AddCommand(NewPaymentsCommand())
	rootCmd.AddCommand(NewPurchasedCommand())
	rootCmd.AddCommand(NewSummaryCommand())
	rootCmd.AddCommand(NewTokenCommand())
	rootCmd.AddCommand(NewEnvCommand())

	return rootCmd
}

// openRuntime builds the ledger from the environment. Blob storage, event
// logging and metrics are disabled since the admin tool only reads.
func openRuntime(cmd *cobra.Command) (*config.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		logger.Debug("opening ledger", "database", cfg.DatabaseType)
	}

	return cfg.Build(logger)
}

func loadConfig() (*config.ServerConfig, error) {
	cfg, err := config.Load(
		config.WithEnv(),
		config.WithoutStorage(),
		config.WithEventLogging(false),
		config.WithMetrics(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
