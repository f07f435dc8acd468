package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
	"wealthtracker/internal/domain/record"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список ключей",
	Long: `Список ключей хранилища. Зашифрованные ключи помечаются замком.

В деградированном режиме выводятся ключи устаревшего хранилища.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		keys, err := app.Storage().Keys(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка ключей: %w", err)
		}

		out := cmd.OutOrStdout()
		if cmdutil.JSONOutput(cmd) {
			if keys == nil {
				keys = []string{}
			}
			return cmdutil.Print(out, cmdutil.FormatJSON, keys)
		}

		if len(keys) == 0 {
			fmt.Fprintln(out, "Записи не найдены")
			return nil
		}

		for _, key := range keys {
			if record.IsSensitive(key) {
				fmt.Fprint(out, "🔒 ")
			} else {
				fmt.Fprint(out, "   ")
			}
			cmdutil.Key(out, key)
		}
		fmt.Fprintf(out, "\nВсего записей: %d\n", len(keys))
		return nil
	},
}
