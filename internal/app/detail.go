package app

import (
	"context"
	"fmt"

	"fundwatch/internal/risk"
)

// Detail prints the valuation quote (when available), the risk
// assessment, and the tail of the NAV history for one fund. A missing
// valuation is a warning; a missing NAV history is the command's only
// hard failure.
func (a *App) Detail(ctx context.Context, opts DetailOptions) error {
	if opts.Tail <= 0 {
		opts.Tail = 10
	}

	f := a.newFeed()

	records, provenance, err := f.LoadDirectory(ctx)
	if err != nil {
		return err
	}
	name := ""
	for _, r := range records {
		if r.Code == opts.Code {
			name = r.Name
			break
		}
	}

	fmt.Printf("fund %s %s  [directory: %s]\n", opts.Code, name, provenance)

	if quote := f.Valuation(ctx, opts.Code); quote != nil {
		fmt.Printf("estimate: %s (%s%%)  as of %s %s\n",
			quote.EstimatedNAV.String(), quote.ChangePct.String(), quote.QuoteDate, quote.QuoteTime)
	} else {
		fmt.Println("estimate: unavailable (unsupported fund, rate limited, or blocked)")
	}

	series := f.NavHistory(ctx, opts.Code)
	if len(series) == 0 {
		return fmt.Errorf("nav history unavailable for %s: wrong code, rate limited, or blocked", opts.Code)
	}

	assessment := risk.Assess(series)
	fmt.Printf("risk score: %d/100\n", assessment.Score)
	fmt.Printf("suggestion: %s", assessment.Action)
	if assessment.Reason != "" {
		fmt.Printf(" (%s)", assessment.Reason)
	}
	fmt.Println()
	fmt.Printf("volatility: %.6f  max drawdown: %.2f%%\n", assessment.Volatility, assessment.MaxDrawdown*100)

	tail := series
	if len(tail) > opts.Tail {
		tail = tail[len(tail)-opts.Tail:]
	}
	fmt.Printf("last %d NAV points:\n", len(tail))
	for _, p := range tail {
		fmt.Printf("  %s  %.4f\n", p.Date.Format("2006-01-02"), p.UnitNAV)
	}

	return nil
}
