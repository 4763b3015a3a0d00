package cli

import (
	"github.com/spf13/cobra"

	"fundwatch/internal/app"
)

var diagCode string

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Probe the upstream endpoints and report which step fails",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.DiagOptions{
			Code: diagCode,
		}

		return getApp().Diagnose(cmd.Context(), opts)
	},
}

func init() {
	diagCmd.Flags().StringVar(&diagCode, "code", "161725", "Fund code used for the valuation and NAV probes")
}
