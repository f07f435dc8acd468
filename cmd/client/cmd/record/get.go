package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

var outputFormat string

var GetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Прочитать запись",
	Long: `Вывод значения записи по ключу.

Истекшие записи и записи, которые не удалось расшифровать, считаются отсутствующими.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		value, ok := app.Storage().Get(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("запись %q не найдена", args[0])
		}

		format := outputFormat
		if cmdutil.JSONOutput(cmd) {
			format = cmdutil.FormatJSON
		}
		return cmdutil.Print(cmd.OutOrStdout(), format, value)
	},
}

func init() {
	GetCmd.Flags().StringVarP(&outputFormat, "output", "o", cmdutil.FormatText, "формат вывода (text, json, yaml)")
}
