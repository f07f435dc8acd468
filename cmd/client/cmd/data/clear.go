package data

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

var clearYes bool

var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Удалить все данные",
	Long: `Удаление всех записей долговременного хранилища и данных приложения
в устаревшем хранилище. Чужие ключи устаревшего хранилища не затрагиваются.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		if !clearYes {
			if !cmdutil.IsInteractive() {
				return fmt.Errorf("для удаления без терминала укажите --yes")
			}
			fmt.Fprint(cmd.OutOrStdout(), "Удалить все данные? [y/N]: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "y", "yes", "д", "да":
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Отменено")
				return nil
			}
		}

		app.Storage().Clear(cmd.Context())
		cmdutil.Success(cmd.OutOrStdout(), "Хранилище очищено")
		return nil
	},
}

func init() {
	ClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "не спрашивать подтверждение")
}
