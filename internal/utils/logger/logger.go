package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"wealthtracker/internal/app/client/config"
	"wealthtracker/internal/utils/logger/handlers/slogpretty"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

// New создает логгер в зависимости от окружения
func New(env string) *slog.Logger {
	return newLogger(env, os.Stderr)
}

// NewWithFile дублирует вывод в файл с ротацией. Пустой path равносилен New.
func NewWithFile(env, path string) *slog.Logger {
	if path == "" {
		return New(env)
	}

	rotator := newRotator(path)

	if env == config.EnvLocal {
		// Цветной вывод в файл не пишем
		return slog.New(NewRedactingHandler(
			slog.NewJSONHandler(io.MultiWriter(os.Stderr, rotator), &slog.HandlerOptions{Level: slog.LevelDebug}),
		))
	}

	return newLogger(env, io.MultiWriter(os.Stderr, rotator))
}

// NewCLI логгер для командной строки: без debug в stderr попадают только
// предупреждения, чтобы не смешивать логи с выводом команд
func NewCLI(debug bool, path string) *slog.Logger {
	if debug {
		return NewWithFile(config.EnvLocal, path)
	}

	var out io.Writer = os.Stderr
	if path != "" {
		out = io.MultiWriter(os.Stderr, newRotator(path))
	}
	return slog.New(NewRedactingHandler(
		slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelWarn}),
	))
}

func newRotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
}

func newLogger(env string, out io.Writer) *slog.Logger {
	var handler slog.Handler

	switch env {
	case config.EnvLocal:
		handler = prettyHandler(out)
	case config.EnvDev:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	case config.EnvProd:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return slog.New(NewRedactingHandler(handler))
}

func setupPrettySlog() *slog.Logger {
	return slog.New(NewRedactingHandler(prettyHandler(os.Stderr)))
}

func prettyHandler(out io.Writer) slog.Handler {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return opts.NewPrettyHandler(out)
}

// Discard логгер без вывода
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
