package fund

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row of the upstream fund directory.
type Record struct {
	Code  string
	Abbr  string
	Name  string
	Extra string
}

// MarshalJSON encodes the record in the upstream row shape
// ["code","abbr","name","extra"].
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{r.Code, r.Abbr, r.Name, r.Extra})
}

// UnmarshalJSON accepts upstream rows of any length; missing cells stay
// empty, surplus cells are dropped. Numeric cells are stringified because
// the source occasionally emits bare numbers for codes.
func (r *Record) UnmarshalJSON(data []byte) error {
	var cells []any
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("fund record row: %w", err)
	}
	fields := []*string{&r.Code, &r.Abbr, &r.Name, &r.Extra}
	for i, dst := range fields {
		if i >= len(cells) {
			break
		}
		*dst = stringify(cells[i])
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return decimal.NewFromFloat(t).String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// RecordFromRow builds a Record from an evaluated directory row.
func RecordFromRow(cells []any) Record {
	var r Record
	fields := []*string{&r.Code, &r.Abbr, &r.Name, &r.Extra}
	for i, dst := range fields {
		if i >= len(cells) {
			break
		}
		*dst = stringify(cells[i])
	}
	return r
}

// Snapshot is the persisted last-known-good directory, the only state that
// survives a restart.
type Snapshot struct {
	TS      time.Time `json:"ts"`
	Records []Record  `json:"data"`
}

// ValuationQuote is the same-day estimated NAV feed. It is transient and
// best-effort; a nil quote is a normal outcome.
type ValuationQuote struct {
	Code         string
	Name         string
	EstimatedNAV decimal.Decimal
	ChangePct    decimal.Decimal
	QuoteDate    string
	QuoteTime    string
}

// NavPoint is one official per-unit valuation.
type NavPoint struct {
	Date    time.Time
	UnitNAV float64
}

// NavSeries is ordered oldest-first. The upstream table arrives
// newest-first and is reversed by the parser.
type NavSeries []NavPoint

// Latest returns the most recent point, or false when the series is empty.
func (s NavSeries) Latest() (NavPoint, bool) {
	if len(s) == 0 {
		return NavPoint{}, false
	}
	return s[len(s)-1], true
}
