package data

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

// DataCmd - родительская команда для операций над всем хранилищем
var DataCmd = &cobra.Command{
	Use:   "data",
	Short: "Выгрузка, загрузка и обслуживание хранилища",
}

// formatFor выбирает формат по расширению файла, если он не задан явно
func formatFor(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return cmdutil.FormatYAML
	default:
		return cmdutil.FormatJSON
	}
}
