// Package cmdutil содержит общие для команд клиента помощники вывода
// и доступ к приложению из контекста команды.
package cmdutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"wealthtracker/internal/app/client"
)

type appKey struct{}

// WithApp кладет приложение в контекст команды
func WithApp(ctx context.Context, app *client.App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// App достает приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(appKey{}).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

// JSONOutput сообщает, включен ли глобальный флаг --json
func JSONOutput(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("json")
	return err == nil && v
}

// Formats вывода
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	keyColor  = color.New(color.FgCyan)
)

// SetupColor отключает цвет, если stdout не терминал
func SetupColor() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

// IsInteractive сообщает, подключен ли stdin к терминалу
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func Success(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func Warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "⚠ "+format+"\n", args...)
}

func Key(w io.Writer, key string) {
	keyColor.Fprintln(w, key)
}

// Print выводит v в выбранном формате; text для произвольного значения - JSON с отступами
func Print(w io.Writer, format string, v any) error {
	switch format {
	case FormatYAML:
		plain, err := ToPlain(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// ToPlain переводит JSON-совместимое значение в map/slice/скаляры для YAML
func ToPlain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}

// ParseData читает выгрузку в JSON или YAML
func ParseData(data []byte, format string) (map[string]json.RawMessage, error) {
	if format == FormatYAML {
		var plain map[string]any
		if err := yaml.Unmarshal(data, &plain); err != nil {
			return nil, fmt.Errorf("разбор YAML: %w", err)
		}
		out := make(map[string]json.RawMessage, len(plain))
		for k, v := range plain {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("ключ %s: %w", k, err)
			}
			out[k] = raw
		}
		return out, nil
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("разбор JSON: %w", err)
	}
	return out, nil
}

// ParseValue принимает JSON, а все остальное сохраняет как строку
func ParseValue(arg string) json.RawMessage {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	quoted, _ := json.Marshal(arg)
	return quoted
}
