package data

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

var (
	exportFile   string
	exportFormat string
)

var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Выгрузить данные",
	Long: `Выгрузка всех живых записей в открытом виде в JSON или YAML.

Выгрузка содержит расшифрованные данные, храните файл в надежном месте.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		exported := app.Storage().ExportData(cmd.Context())

		var out io.Writer = cmd.OutOrStdout()
		if exportFile != "" {
			f, err := os.OpenFile(exportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("ошибка создания файла: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := cmdutil.Print(out, formatFor(exportFile, exportFormat), exported); err != nil {
			return fmt.Errorf("ошибка записи выгрузки: %w", err)
		}

		if exportFile != "" {
			cmdutil.Success(cmd.OutOrStdout(), "Выгружено записей: %d в %s", len(exported), exportFile)
		}
		return nil
	},
}

func init() {
	ExportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "файл выгрузки (по умолчанию stdout)")
	ExportCmd.Flags().StringVar(&exportFormat, "format", "", "формат (json, yaml); по умолчанию по расширению файла")
}
