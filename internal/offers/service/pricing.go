package service

// Pricing percentages applied on top of direct costs. Overhead is charged on
// labor and material; profit margin on everything including overhead.
const (
	overheadPct = 15
	profitPct   = 10
)

// Breakdown is a priced offer in integer cents. All derived amounts round
// half up so the total is always the exact sum of its parts.
type Breakdown struct {
	LaborCents    int64
	MaterialCents int64
	TravelCents   int64
	OverheadCents int64
	ProfitCents   int64
	TotalCents    int64
}

// Quote derives the full price breakdown from direct cost inputs.
func Quote(laborCents, materialCents, travelCents int64) Breakdown {
	overhead := pctOf(laborCents+materialCents, overheadPct)
	subtotal := laborCents + materialCents + travelCents + overhead
	profit := pctOf(subtotal, profitPct)

	return Breakdown{
		LaborCents:    laborCents,
		MaterialCents: materialCents,
		TravelCents:   travelCents,
		OverheadCents: overhead,
		ProfitCents:   profit,
		TotalCents:    subtotal + profit,
	}
}

func pctOf(cents int64, pct int64) int64 {
	return (cents*pct + 50) / 100
}
