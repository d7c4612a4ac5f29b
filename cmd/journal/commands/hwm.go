package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/journal"
)

// hwmCmd groups high-water-mark maintenance
var hwmCmd = &cobra.Command{
	Use:   "hwm",
	Short: "High-water-mark maintenance",
}

var hwmReconcileCmd = &cobra.Command{
	Use:   "reconcile [account_id]",
	Short: "Replay history and advance lagging high-water-marks",
	Long: `Replay the full operation history of one account (or all of them) and
advance the persisted high-water-mark when the replayed peak is higher.
The mark is never lowered.

Example:
  go run ./cmd/journal hwm reconcile
  go run ./cmd/journal hwm reconcile 6f1c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHWMReconcile,
}

func init() {
	rootCmd.AddCommand(hwmCmd)
	hwmCmd.AddCommand(hwmReconcileCmd)
}

func runHWMReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var recs []*journal.Reconciliation
	if len(args) == 1 {
		rec, err := a.service.ReconcileHWM(ctx, args[0])
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	} else {
		recs, err = a.service.ReconcileAll(ctx)
		if err != nil {
			PrintError(err.Error())
		}
	}

	widths := []int{36, 12, 12, 8}
	PrintTableHeader([]string{"ACCOUNT", "PERSISTED", "REPLAYED", "ACTION"}, widths)
	for _, r := range recs {
		action := "-"
		if r.Advanced {
			action = "advanced"
		}
		PrintTableRow([]string{r.AccountID, money(r.Persisted), money(r.Replayed), action}, widths)
	}
	return err
}
