package detect

import (
	"github.com/shopspring/decimal"

	"github.com/futarchy-tools/arbot/pkg/oracle"
)

// Flow is the trade direction of an opportunity.
type Flow int

const (
	// FlowNone means the deviation is inside tolerance.
	FlowNone Flow = iota
	// FlowBuy: spot overpriced versus implied — buy conditionals cheap,
	// merge, sell the composite high on spot.
	FlowBuy
	// FlowSell: spot underpriced — buy the composite cheap on spot,
	// split, sell conditionals high.
	FlowSell
)

func (f Flow) String() string {
	switch f {
	case FlowBuy:
		return "buy"
	case FlowSell:
		return "sell"
	default:
		return "none"
	}
}

// Leg names a conditional side.
type Leg int

const (
	LegYes Leg = iota
	LegNo
)

func (l Leg) String() string {
	if l == LegNo {
		return "no"
	}
	return "yes"
}

// Verdict is the detector's output for one tick.
type Verdict struct {
	Flow    Flow
	Cheaper Leg

	Implied   decimal.Decimal
	Deviation decimal.Decimal
}

// None reports whether no opportunity was found.
func (v Verdict) None() bool { return v.Flow == FlowNone }

// Implied computes the price the spot venue should quote, from the
// conditional legs weighted by the prediction market:
//
//	implied = pred_yes*yes + (1 - pred_yes)*no
//
// The NO weight is derived from pred_yes by the split-position identity;
// the polled pred_no price is only used upstream as a sanity check.
func Implied(p oracle.TickPrices) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return p.PredYes.Mul(p.Yes).Add(one.Sub(p.PredYes).Mul(p.No))
}

// Detect classifies the tick. The tolerance gate is strict: a deviation
// exactly at tolerance is no opportunity. Equal conditional prices break
// the cheaper-leg tie toward YES.
func Detect(p oracle.TickPrices, tolerance decimal.Decimal) Verdict {
	implied := Implied(p)
	dev := p.Spot.Sub(implied).Abs()

	v := Verdict{Implied: implied, Deviation: dev}
	if dev.LessThanOrEqual(tolerance) {
		return v
	}

	if p.Spot.GreaterThan(implied) {
		v.Flow = FlowBuy
	} else {
		v.Flow = FlowSell
	}

	if p.Yes.LessThanOrEqual(p.No) {
		v.Cheaper = LegYes
	} else {
		v.Cheaper = LegNo
	}
	return v
}
