package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/accountcfg"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/chart"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/importer"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/risk"
)

// evaluateCmd runs the risk engine over a statement file without a database
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [statement]",
	Short: "Evaluate a statement file offline",
	Long: `Parse a CSV or HTML statement and print the risk metrics.

No database is opened. The high-water-mark is replayed from the statement,
so it matches what an always-on journal would have recorded.

Example:
  go run ./cmd/journal evaluate statement.csv
  go run ./cmd/journal evaluate statement.csv --config account.yaml --today 2024-03-15
  go run ./cmd/journal evaluate statement.html --json
  go run ./cmd/journal evaluate statement.csv --chart growth.png`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var (
	evaluateConfig string
	evaluateToday  string
	evaluateJSON   bool
	evaluateChart  string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateConfig, "config", "", "YAML account file (default settings when empty)")
	evaluateCmd.Flags().StringVar(&evaluateToday, "today", "", "evaluation date YYYY-MM-DD (default today)")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the result as JSON")
	evaluateCmd.Flags().StringVar(&evaluateChart, "chart", "", "also write the growth chart PNG here")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := &accountcfg.Config{
		Account:  accountcfg.AccountMeta{Name: "statement"},
		Settings: contracts.DefaultSettings(),
	}
	if evaluateConfig != "" {
		loaded, err := accountcfg.Load(evaluateConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	hash, err := accountcfg.Hash(cfg)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	now, err := evaluationTime(cfg)
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer file.Close()

	parsed, err := importer.Parse(file, args[0], "offline")
	if err != nil {
		return fmt.Errorf("parse statement: %w", err)
	}

	replayed := risk.RecomputeHWM(parsed.Operations, cfg.Settings)
	res := risk.NewEngine().Evaluate(risk.Input{
		Operations: parsed.Operations,
		Settings:   cfg.Settings,
		Goals:      cfg.Goals,
		PriorHWM:   &replayed,
		Now:        now,
	})

	if evaluateChart != "" {
		if err := chart.SavePNG(evaluateChart, cfg.Account.Name, res.GrowthSeries); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}

	if evaluateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"config_hash": hash,
			"import":      parsed,
			"result":      res,
		})
	}

	printEvaluation(cfg, hash, parsed, res)
	if evaluateChart != "" {
		PrintSuccess("Chart written to " + evaluateChart)
	}
	return nil
}

// evaluationTime resolves "today" in the account timezone
func evaluationTime(cfg *accountcfg.Config) (time.Time, error) {
	loc, err := cfg.Location()
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone: %w", err)
	}
	if evaluateToday == "" {
		return time.Now().In(loc), nil
	}
	d, err := contracts.ParseDay(evaluateToday)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
}

func printEvaluation(cfg *accountcfg.Config, hash string, parsed *importer.Result, res *risk.Result) {
	const w = 22

	PrintHeader("Evaluation: " + cfg.Account.Name)
	PrintKeyValue("Config hash", hash[:12], w)
	PrintKeyValue("Rows", fmt.Sprintf("%d (%d rejected)", parsed.Rows, len(parsed.Errors)), w)
	PrintKeyValue("Operations", fmt.Sprintf("%d", res.OperationCount), w)
	PrintSeparator()

	PrintKeyValue("Initial balance", money(res.Settings.InitialBalance), w)
	PrintKeyValue("Current balance", money(res.CurrentBalance), w)
	PrintKeyValue("Total P/L", money(res.TotalProfitLoss), w)
	PrintKeyValue("ROI", pct(res.ROI), w)
	PrintSeparator()

	PrintKeyValue("High-water-mark", money(res.HWM), w)
	PrintKeyValue("Drawdown floor", money(res.DrawdownFloor), w)
	PrintKeyValue("Margin to floor", money(res.MarginToFloor), w)
	PrintSeparator()

	c := res.Consistency
	PrintKeyValue("Consistency", fmt.Sprintf("%s of %s limit (%s)", pct(c.Percentage), pct(c.Limit), c.Status), w)
	if c.MaxDay != "" {
		PrintKeyValue("Best day", fmt.Sprintf("%s %s of %s", c.MaxDay, money(c.MaxDayProfit), money(c.TotalPositiveProfit)), w)
	}
	PrintKeyValue("Weekly goal", goalLine(res.Goals.Weekly), w)
	PrintKeyValue("Monthly goal", goalLine(res.Goals.Monthly), w)

	if len(res.Weekdays) > 0 {
		fmt.Println()
		widths := []int{10, 12, 8, 8}
		PrintTableHeader([]string{"WEEKDAY", "P/L", "TRADES", "WIN %"}, widths)
		for _, d := range res.Weekdays {
			if d.Total == 0 {
				continue
			}
			PrintTableRow([]string{d.Weekday, money(d.ProfitLoss), fmt.Sprintf("%d", d.Total), pct(d.WinRate)}, widths)
		}
	}

	if len(parsed.Errors) > 0 {
		fmt.Println()
		for _, e := range parsed.Errors {
			PrintError(fmt.Sprintf("line %d: %s", e.Line, e.Message))
		}
	}

	if res.Breached {
		PrintWarning("Trailing drawdown floor breached")
	} else {
		fmt.Println()
		PrintSuccess("Within the trailing drawdown")
	}
}

func goalLine(g risk.GoalProgress) string {
	if g.Goal == 0 {
		return fmt.Sprintf("%s (no goal)", money(g.Profit))
	}
	return fmt.Sprintf("%s of %s (%s)", money(g.Profit), money(g.Goal), pct(g.Progress))
}
