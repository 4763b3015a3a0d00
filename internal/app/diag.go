package app

import (
	"context"
	"errors"
	"fmt"
)

// Diagnose probes the three upstream endpoints independently so a failing
// step is obvious at a glance. Returns an error when any probe failed.
func (a *App) Diagnose(ctx context.Context, opts DiagOptions) error {
	client := a.newClient()
	dir := a.newDirectoryManager(client)
	f := a.newFeed()

	failures := 0

	if err := dir.Probe(ctx); err != nil {
		failures++
		fmt.Printf("directory: FAIL (%v)\n", err)
	} else {
		fmt.Println("directory: OK")
	}

	if quote := f.Valuation(ctx, opts.Code); quote != nil {
		fmt.Printf("valuation: OK (gsz=%s gszzl=%s)\n", quote.EstimatedNAV.String(), quote.ChangePct.String())
	} else {
		// not counted as a failure on its own: many funds simply have no
		// valuation feed
		fmt.Println("valuation: EMPTY (unsupported fund, rate limited, or blocked)")
	}

	if series := f.NavHistory(ctx, opts.Code); len(series) > 0 {
		latest, _ := series.Latest()
		fmt.Printf("nav history: OK (%d points, latest %s %.4f)\n",
			len(series), latest.Date.Format("2006-01-02"), latest.UnitNAV)
	} else {
		failures++
		fmt.Println("nav history: FAIL (rate limited, blocked, or wrong code)")
	}

	if failures > 0 {
		return errors.New("one or more probes failed")
	}
	return nil
}
