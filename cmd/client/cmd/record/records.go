package record

import (
	"github.com/spf13/cobra"
)

// RecordCmd - родительская команда для всех операций с записями
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Управление записями",
	Long: `Чтение, сохранение и удаление записей хранилища по ключу.

Ключи счетов, транзакций, инвестиций, бюджетов, целей и долгов
шифруются автоматически.`,
}
