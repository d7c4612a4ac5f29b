package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/chart"
)

// chartCmd renders the growth chart of an account
var chartCmd = &cobra.Command{
	Use:   "chart [account_id]",
	Short: "Render the capital growth chart as PNG",
	Long: `Render balance, high-water-mark and drawdown floor per operation.

Example:
  go run ./cmd/journal chart 6f1c... --out growth.png`,
	Args: cobra.ExactArgs(1),
	RunE: runChart,
}

var chartOut string

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "growth.png", "output PNG path")
}

func runChart(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	account, err := a.service.GetAccount(ctx, args[0])
	if err != nil {
		return err
	}
	res, err := a.service.Dashboard(ctx, account.ID)
	if err != nil {
		return err
	}

	if err := chart.SavePNG(chartOut, account.Name, res.GrowthSeries); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Chart written to %s (%d points)", chartOut, len(res.GrowthSeries)))
	return nil
}
