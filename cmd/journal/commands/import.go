package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/importer"
)

// importCmd loads a statement into an account
var importCmd = &cobra.Command{
	Use:   "import [account_id] [statement]",
	Short: "Import a CSV or HTML statement into an account",
	Long: `Parse a statement and upsert its operations into an account.

Rows with an id replace the stored operation with the same id; rows
without one are added. Rejected rows are reported and skipped.

Example:
  go run ./cmd/journal import 6f1c... statement.csv
  go run ./cmd/journal import 6f1c... export.html --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

var importDryRun bool

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and report only")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, path := args[0], args[1]

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer file.Close()

	parsed, err := importer.Parse(file, path, id)
	if err != nil {
		return fmt.Errorf("parse statement: %w", err)
	}

	PrintInfo(parsed.Summary())
	for _, e := range parsed.Errors {
		PrintError(fmt.Sprintf("line %d: %s", e.Line, e.Message))
	}
	if importDryRun {
		return nil
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	written, res, err := a.service.ImportOperations(ctx, id, parsed.Operations)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%d operation(s) written", written))
	PrintKeyValue("Balance", money(res.CurrentBalance), 16)
	PrintKeyValue("High-water-mark", money(res.HWM), 16)
	PrintKeyValue("Margin to floor", money(res.MarginToFloor), 16)
	if res.Breached {
		PrintWarning("Trailing drawdown floor breached")
	}
	return nil
}
