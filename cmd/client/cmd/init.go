package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

type initStatus struct {
	Backend     string `json:"backend"`
	DurablePath string `json:"durablePath"`
	Degraded    bool   `json:"degraded"`
	SessionID   string `json:"sessionId"`
	ExpiresAt   string `json:"sessionExpiresAt"`
	Keys        int    `json:"keys"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Инициализировать хранилище",
	Long: `Команда init открывает долговременное хранилище, переносит данные
из устаревшего хранилища (один раз за сессию) и показывает состояние.

Если долговременное хранилище недоступно, клиент продолжает работать
в деградированном режиме на устаревшем хранилище.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		storage := app.Storage()

		session, err := app.Session()
		if err != nil {
			return fmt.Errorf("ошибка чтения сессии: %w", err)
		}

		keys, err := storage.Keys(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка ключей: %w", err)
		}

		status := initStatus{
			Backend:     app.Config().DurableBackend,
			DurablePath: app.Config().DurablePath,
			Degraded:    storage.Degraded(),
			SessionID:   session.ID,
			ExpiresAt:   session.ExpiresAt.Format("2006-01-02 15:04:05"),
			Keys:        len(keys),
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return cmdutil.Print(out, cmdutil.FormatJSON, status)
		}

		if status.Degraded {
			cmdutil.Warn(out, "Долговременное хранилище недоступно, работа в деградированном режиме")
		} else {
			cmdutil.Success(out, "Хранилище готово (%s: %s)", status.Backend, status.DurablePath)
		}
		fmt.Fprintf(out, "Сессия:      %s\n", status.SessionID)
		fmt.Fprintf(out, "Истекает:    %s\n", status.ExpiresAt)
		fmt.Fprintf(out, "Записей:     %d\n", status.Keys)
		return nil
	},
}
