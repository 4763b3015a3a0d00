package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"fundwatch/internal/fund"
)

// Search loads the directory and prints records matching the query. Codes
// and names match by plain substring; the pinyin abbreviation and extra
// column match case-insensitively.
func (a *App) Search(ctx context.Context, opts SearchOptions) error {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return fmt.Errorf("search query must not be empty")
	}
	if opts.Limit <= 0 {
		opts.Limit = 120
	}

	records, provenance, err := a.newFeed().LoadDirectory(ctx)
	if err != nil {
		return err
	}

	matches := filterRecords(records, query)
	fmt.Printf("directory source: %s (%d funds)\n", provenance, len(records))
	if len(matches) == 0 {
		fmt.Println("no matches")
		return nil
	}

	shown := matches
	if len(shown) > opts.Limit {
		shown = shown[:opts.Limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tABBR\tEXTRA")
	for _, r := range shown {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Code, r.Name, r.Abbr, r.Extra)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(matches) > len(shown) {
		fmt.Printf("... %d more matches not shown\n", len(matches)-len(shown))
	}
	return nil
}

func filterRecords(records []fund.Record, query string) []fund.Record {
	lower := strings.ToLower(query)
	var out []fund.Record
	for _, r := range records {
		if strings.Contains(r.Code, query) ||
			strings.Contains(r.Name, query) ||
			strings.Contains(strings.ToLower(r.Abbr), lower) ||
			strings.Contains(strings.ToLower(r.Extra), lower) {
			out = append(out, r)
		}
	}
	return out
}
