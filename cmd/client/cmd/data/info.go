package data

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthtracker/cmd/client/cmd/cmdutil"
)

type storageInfo struct {
	Usage    int64 `json:"usage"`
	Quota    int64 `json:"quota"`
	Ready    bool  `json:"ready"`
	Degraded bool  `json:"degraded"`
}

var InfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Занятое место и квота",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		storage := app.Storage()
		estimate := storage.GetStorageInfo(cmd.Context())
		info := storageInfo{
			Usage:    estimate.Usage,
			Quota:    estimate.Quota,
			Ready:    storage.Ready(),
			Degraded: storage.Degraded(),
		}

		out := cmd.OutOrStdout()
		if cmdutil.JSONOutput(cmd) {
			return cmdutil.Print(out, cmdutil.FormatJSON, info)
		}

		fmt.Fprintf(out, "Занято:      %s\n", humanBytes(info.Usage))
		fmt.Fprintf(out, "Квота:       %s\n", humanBytes(info.Quota))
		if info.Degraded {
			cmdutil.Warn(out, "Деградированный режим: долговременное хранилище недоступно")
		}
		return nil
	},
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
