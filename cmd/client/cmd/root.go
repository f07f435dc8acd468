package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"wealthtracker/cmd/client/cmd/cmdutil"
	"wealthtracker/cmd/client/cmd/data"
	"wealthtracker/cmd/client/cmd/record"
	"wealthtracker/internal/app/client"
	"wealthtracker/internal/app/client/config"
	"wealthtracker/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "wealthtracker",
	Short: "WealthTracker - локальное зашифрованное хранилище финансовых данных",
	Long: `WealthTracker хранит счета, транзакции, бюджеты и другие финансовые данные
на этом устройстве.

Чувствительные данные шифруются ключом текущей сессии. Ключ живет только
в сессионном хранилище: после завершения сессии зашифрованные записи
становятся недоступны.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if app != nil {
		app.Shutdown()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cmdutil.SetupColor()

	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	log = logger.NewCLI(debug, cfg.LogFile)

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	if err := app.Init(cmd.Context()); err != nil {
		return fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	cmd.SetContext(cmdutil.WithApp(cmd.Context(), app))
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".wealthtracker"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")

	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(record.RecordCmd)
	record.RecordCmd.AddCommand(record.GetCmd)
	record.RecordCmd.AddCommand(record.SetCmd)
	record.RecordCmd.AddCommand(record.RemoveCmd)
	record.RecordCmd.AddCommand(record.ListCmd)

	rootCmd.AddCommand(data.DataCmd)
	data.DataCmd.AddCommand(data.ExportCmd)
	data.DataCmd.AddCommand(data.ImportCmd)
	data.DataCmd.AddCommand(data.ClearCmd)
	data.DataCmd.AddCommand(data.InfoCmd)
	data.DataCmd.AddCommand(data.SweepCmd)
}
