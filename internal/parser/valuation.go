package parser

import (
	"encoding/json"
	"regexp"

	"github.com/shopspring/decimal"

	"fundwatch/internal/fund"
)

// The valuation endpoint wraps a flat JSON object in a JSONP callback,
// e.g. jsonpgz({"fundcode":"161725","gsz":"1.2345",...});
var callbackPattern = regexp.MustCompile(`(?s)\((\{.*\})\)`)

type valuationWire struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	GSZ      string `json:"gsz"`
	GSZZL    string `json:"gszzl"`
	GSRQ     string `json:"gsrq"`
	GSTime   string `json:"gstime"`
}

// ParseValuation extracts the estimated-NAV quote from a JSONP payload.
// Valuation is a convenience feed: any extraction or decoding failure
// yields nil rather than an error.
func ParseValuation(payload []byte) *fund.ValuationQuote {
	m := callbackPattern.FindSubmatch(payload)
	if m == nil {
		return nil
	}

	var wire valuationWire
	if err := json.Unmarshal(m[1], &wire); err != nil {
		return nil
	}

	estimated, err := decimal.NewFromString(wire.GSZ)
	if err != nil {
		return nil
	}

	// A garbled change percentage degrades to zero; the estimate itself
	// is still worth showing.
	changePct, err := decimal.NewFromString(wire.GSZZL)
	if err != nil {
		changePct = decimal.Zero
	}

	return &fund.ValuationQuote{
		Code:         wire.FundCode,
		Name:         wire.Name,
		EstimatedNAV: estimated,
		ChangePct:    changePct,
		QuoteDate:    wire.GSRQ,
		QuoteTime:    wire.GSTime,
	}
}
