package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/accountcfg"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// accountCmd groups account management commands
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
	Long: `Create and list journal accounts.

Example:
  go run ./cmd/journal account create --name "Evaluation 50K"
  go run ./cmd/journal account create --from account.yaml
  go run ./cmd/journal account list`,
}

var (
	accountCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE:  runAccountCreate,
	}

	accountListCmd = &cobra.Command{
		Use:   "list",
		Short: "List accounts with their current balance",
		RunE:  runAccountList,
	}

	accountName string
	accountID   string
	accountFrom string
)

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)

	accountCreateCmd.Flags().StringVar(&accountName, "name", "", "account name")
	accountCreateCmd.Flags().StringVar(&accountID, "id", "", "explicit account id (e.g. a Supabase cuenta_id)")
	accountCreateCmd.Flags().StringVar(&accountFrom, "from", "", "YAML account file with settings and goals")
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name, id := accountName, accountID
	var settings *contracts.Settings
	var goals contracts.Goals

	if accountFrom != "" {
		file, err := accountcfg.Load(accountFrom)
		if err != nil {
			return err
		}
		if name == "" {
			name = file.Account.Name
		}
		if id == "" {
			id = file.Account.ID
		}
		settings = &file.Settings
		goals = file.Goals
	}
	if name == "" {
		return fmt.Errorf("--name is required (or an account name in --from)")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var account *contracts.Account
	if id != "" {
		account, err = a.service.CreateAccountWithID(ctx, id, name, settings)
	} else {
		account, err = a.service.CreateAccount(ctx, name, settings)
	}
	if err != nil {
		return err
	}

	if goals != (contracts.Goals{}) {
		if _, err := a.service.UpdateGoals(ctx, account.ID, goals); err != nil {
			return fmt.Errorf("set goals: %w", err)
		}
	}

	PrintSuccess(fmt.Sprintf("Account created: %s (%s)", account.Name, account.ID))
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.service.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		PrintInfo("No accounts yet")
		return nil
	}

	widths := []int{36, 24, 12, 12, 12, 8}
	PrintTableHeader([]string{"ID", "NAME", "BALANCE", "HWM", "MARGIN", "STATUS"}, widths)
	for _, account := range accounts {
		res, err := a.service.Dashboard(ctx, account.ID)
		if err != nil {
			a.log.WithAccount(account.ID).WithError(err).Warn("Failed to evaluate account")
			PrintTableRow([]string{account.ID, account.Name, "-", "-", "-", "error"}, widths)
			continue
		}
		status := "ok"
		if res.Breached {
			status = "BREACH"
		}
		PrintTableRow([]string{
			account.ID, account.Name,
			money(res.CurrentBalance), money(res.HWM), money(res.MarginToFloor), status,
		}, widths)
	}
	return nil
}
