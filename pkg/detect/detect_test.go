package detect

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/futarchy-tools/arbot/pkg/oracle"
)

func prices(yes, no, predYes, spot string) oracle.TickPrices {
	return oracle.TickPrices{
		Yes:     decimal.RequireFromString(yes),
		No:      decimal.RequireFromString(no),
		PredYes: decimal.RequireFromString(predYes),
		Spot:    decimal.RequireFromString(spot),
	}
}

func TestDetect_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		p         oracle.TickPrices
		tolerance string
		flow      Flow
		cheaper   Leg
	}{
		{
			name:      "balanced market, no opportunity",
			p:         prices("0.50", "0.50", "0.50", "0.50"),
			tolerance: "0.01",
			flow:      FlowNone,
		},
		{
			name:      "spot overpriced, yes cheaper",
			p:         prices("0.40", "0.60", "0.50", "0.55"),
			tolerance: "0.01",
			flow:      FlowBuy,
			cheaper:   LegYes,
		},
		{
			name:      "spot underpriced, no cheaper",
			p:         prices("0.70", "0.30", "0.50", "0.40"),
			tolerance: "0.02",
			flow:      FlowSell,
			cheaper:   LegNo,
		},
		{
			name:      "deviation exactly at tolerance is no opportunity",
			p:         prices("0.50", "0.50", "0.50", "0.51"),
			tolerance: "0.01",
			flow:      FlowNone,
		},
		{
			name:      "equal conditional prices break tie toward yes",
			p:         prices("0.50", "0.50", "0.50", "0.60"),
			tolerance: "0.01",
			flow:      FlowBuy,
			cheaper:   LegYes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Detect(tt.p, decimal.RequireFromString(tt.tolerance))
			if v.Flow != tt.flow {
				t.Errorf("flow = %v, want %v", v.Flow, tt.flow)
			}
			if tt.flow != FlowNone && v.Cheaper != tt.cheaper {
				t.Errorf("cheaper = %v, want %v", v.Cheaper, tt.cheaper)
			}
		})
	}
}

func TestDetect_ImpliedFormula(t *testing.T) {
	// implied = pred_yes*yes + (1-pred_yes)*no
	p := prices("0.40", "0.60", "0.25", "0.50")
	got := Implied(p)
	want := decimal.RequireFromString("0.55") // 0.25*0.4 + 0.75*0.6
	if !got.Equal(want) {
		t.Fatalf("implied = %s, want %s", got, want)
	}
}

// If spot increases while everything else holds, the verdict can never
// move toward Sell.
func TestDetect_SpotMonotonicity(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	base := prices("0.40", "0.60", "0.50", "0.30")

	prev := Detect(base, tolerance).Flow
	step := decimal.RequireFromString("0.02")
	spot := base.Spot
	for i := 0; i < 25; i++ {
		spot = spot.Add(step)
		p := base
		p.Spot = spot
		flow := Detect(p, tolerance).Flow

		if prev == FlowBuy && flow != FlowBuy {
			t.Fatalf("verdict regressed from Buy at spot=%s", spot)
		}
		if prev == FlowNone && flow == FlowSell {
			t.Fatalf("verdict moved None -> Sell at spot=%s", spot)
		}
		prev = flow
	}
	if prev != FlowBuy {
		t.Fatalf("expected Buy at spot=%s, got %v", spot, prev)
	}
}

// Mirroring spot around implied flips BUY/SELL and leaves the cheaper
// leg unchanged.
func TestDetect_SymmetricTolerance(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	p := prices("0.40", "0.60", "0.50", "0.58")

	v := Detect(p, tolerance)
	if v.Flow != FlowBuy {
		t.Fatalf("setup: expected Buy, got %v", v.Flow)
	}

	mirrored := p
	mirrored.Spot = v.Implied.Sub(p.Spot.Sub(v.Implied))
	mv := Detect(mirrored, tolerance)

	if mv.Flow != FlowSell {
		t.Errorf("mirrored flow = %v, want Sell", mv.Flow)
	}
	if mv.Cheaper != v.Cheaper {
		t.Errorf("mirrored cheaper = %v, want %v", mv.Cheaper, v.Cheaper)
	}
	if !mv.Deviation.Equal(v.Deviation) {
		t.Errorf("mirrored deviation = %s, want %s", mv.Deviation, v.Deviation)
	}
}

// For pred_yes in [0,1] the implied price stays between the conditional
// leg prices.
func TestDetect_ImpliedBounds(t *testing.T) {
	yes := decimal.RequireFromString("0.35")
	no := decimal.RequireFromString("0.80")

	for i := 0; i <= 10; i++ {
		predYes := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(10))
		p := oracle.TickPrices{Yes: yes, No: no, PredYes: predYes}
		implied := Implied(p)
		if implied.LessThan(yes) || implied.GreaterThan(no) {
			t.Errorf("pred_yes=%s: implied %s outside [%s, %s]", predYes, implied, yes, no)
		}
	}
}
