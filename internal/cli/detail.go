package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fundwatch/internal/app"
)

var detailTail int

var detailCmd = &cobra.Command{
	Use:   "detail <code>",
	Short: "Show valuation, NAV history, and risk assessment for one fund",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if detailTail <= 0 {
			return fmt.Errorf("--tail must be greater than zero")
		}

		opts := app.DetailOptions{
			Code: args[0],
			Tail: detailTail,
		}

		return getApp().Detail(cmd.Context(), opts)
	},
}

func init() {
	detailCmd.Flags().IntVar(&detailTail, "tail", 10, "Number of trailing NAV points to display")
}
