package data

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

var importFormat string

var ImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Загрузить данные",
	Long: `Загрузка записей из выгрузки JSON или YAML. Каждая запись сохраняется
так же, как при record set: чувствительные ключи шифруются.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("ошибка чтения файла: %w", err)
		}

		entries, err := cmdutil.ParseData(raw, formatFor(args[0], importFormat))
		if err != nil {
			return err
		}

		if err := app.Storage().ImportData(cmd.Context(), entries); err != nil {
			return fmt.Errorf("загрузка выполнена частично: %w", err)
		}

		cmdutil.Success(cmd.OutOrStdout(), "Загружено записей: %d", len(entries))
		return nil
	},
}

func init() {
	ImportCmd.Flags().StringVar(&importFormat, "format", "", "формат (json, yaml); по умолчанию по расширению файла")
}
