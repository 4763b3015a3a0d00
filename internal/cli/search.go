package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fundwatch/internal/app"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the fund directory by code, name, or pinyin abbreviation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.SearchOptions{
			Query: args[0],
			Limit: searchLimit,
		}

		return getApp().Search(cmd.Context(), opts)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 120, "Maximum number of matches to display")
}
