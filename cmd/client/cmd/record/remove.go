package record

import (
	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

var RemoveCmd = &cobra.Command{
	Use:     "remove [key]",
	Aliases: []string{"rm"},
	Short:   "Удалить запись",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		app.Storage().Remove(cmd.Context(), args[0])
		cmdutil.Success(cmd.OutOrStdout(), "Запись %s удалена", args[0])
		return nil
	},
}
