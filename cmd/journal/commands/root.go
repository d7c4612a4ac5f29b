package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	storageBackend string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "Trading journal and prop-firm risk engine",
	Long: `Trading Journal Unified CLI

Records trading operations per account and evaluates them against the
prop-firm rules: trailing drawdown from the high-water-mark, single-day
consistency and weekly/monthly goals.

Usage:
  go run ./cmd/journal [command]

Examples:
  go run ./cmd/journal api
  go run ./cmd/journal migrate
  go run ./cmd/journal account create --name "Evaluation 50K"
  go run ./cmd/journal evaluate statement.csv --config account.yaml
  go run ./cmd/journal hwm reconcile`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&storageBackend, "storage", "", "storage backend override (postgres|sqlite|memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
