package data

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

var SweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Удалить истекшие записи",
	Long:  `Немедленная очистка истекших записей во всех таблицах, не дожидаясь планировщика.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		removed, err := app.Storage().Sweep(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка очистки: %w", err)
		}

		if cmdutil.JSONOutput(cmd) {
			return cmdutil.Print(cmd.OutOrStdout(), cmdutil.FormatJSON, map[string]int{"removed": removed})
		}
		cmdutil.Success(cmd.OutOrStdout(), "Удалено истекших записей: %d", removed)
		return nil
	},
}
