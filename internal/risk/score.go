// Package risk derives a bounded risk score from a NAV history.
package risk

import (
	"math"

	"fundwatch/internal/fund"
)

// Action is the position recommendation attached to a score.
type Action string

const (
	ActionReduce Action = "reduce"
	ActionHold   Action = "hold"
	ActionAdd    Action = "add"
)

// Assessment is the scored view of a NAV series. Score is in [0,100];
// MaxDrawdown is a fraction of the running peak.
type Assessment struct {
	Score       int
	Action      Action
	Volatility  float64
	MaxDrawdown float64
	Reason      string
}

const (
	minPoints  = 30
	minReturns = 10

	// Empirical weights tuned against daily open-end fund NAV series.
	volatilityWeight = 4000
	drawdownWeight   = 200

	reduceAbove = 70
	addBelow    = 35
)

func neutral(reason string) Assessment {
	return Assessment{Score: 50, Action: ActionHold, Reason: reason}
}

// Assess scores a NAV series (oldest-first). Series with fewer than 30
// points, or fewer than 10 usable returns, get a neutral 50/hold.
func Assess(series fund.NavSeries) Assessment {
	if len(series) < minPoints {
		return neutral("insufficient history")
	}

	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].UnitNAV
		if prev <= 0 {
			continue
		}
		returns = append(returns, series[i].UnitNAV/prev-1)
	}
	if len(returns) < minReturns {
		return neutral("insufficient samples")
	}

	vol := populationStddev(returns)
	dd := maxDrawdown(series)

	score := int(vol*volatilityWeight + dd*drawdownWeight)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	action := ActionHold
	switch {
	case score > reduceAbove:
		action = ActionReduce
	case score < addBelow:
		action = ActionAdd
	}

	return Assessment{
		Score:       score,
		Action:      action,
		Volatility:  vol,
		MaxDrawdown: dd,
	}
}

// populationStddev divides by n, not n-1.
func populationStddev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))

	return math.Sqrt(variance)
}

// maxDrawdown is the largest peak-to-trough relative decline, with the
// running peak seeded from the first point.
func maxDrawdown(series fund.NavSeries) float64 {
	peak := series[0].UnitNAV
	dd := 0.0
	for _, p := range series {
		if p.UnitNAV > peak {
			peak = p.UnitNAV
		}
		if peak > 0 {
			if candidate := (peak - p.UnitNAV) / peak; candidate > dd {
				dd = candidate
			}
		}
	}
	return dd
}
