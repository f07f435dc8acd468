package record

import (
	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
	"wealthtracker/internal/domain/record"
)

var (
	setEncrypted  bool
	setExpiryDays float64
	setCompress   bool
)

var SetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Сохранить запись",
	Long: `Сохранение значения под ключом. Значение разбирается как JSON,
а если это не JSON, сохраняется как строка.

Флаг --encrypted переопределяет автоматическую классификацию ключа,
--expiry-days задает срок жизни (0 или меньше - бессрочно).`,
	Example: `  wealthtracker record set accounts '[{"id":"1","balance":1000}]'
  wealthtracker record set theme dark --expiry-days 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		var opts []record.SetOption
		if cmd.Flags().Changed("encrypted") {
			opts = append(opts, record.WithEncryption(setEncrypted))
		}
		if cmd.Flags().Changed("expiry-days") {
			opts = append(opts, record.WithExpiryDays(setExpiryDays))
		}
		if setCompress {
			opts = append(opts, record.WithCompression())
		}

		key := args[0]
		if err := app.Storage().Set(cmd.Context(), key, cmdutil.ParseValue(args[1]), opts...); err != nil {
			return err
		}

		cmdutil.Success(cmd.OutOrStdout(), "Запись %s сохранена", key)
		return nil
	},
}

func init() {
	SetCmd.Flags().BoolVar(&setEncrypted, "encrypted", false, "шифровать значение (по умолчанию по ключу)")
	SetCmd.Flags().Float64Var(&setExpiryDays, "expiry-days", 0, "срок жизни в днях")
	SetCmd.Flags().BoolVar(&setCompress, "compress", false, "сжимать большие незашифрованные значения")
}
