package service

import "testing"

func TestQuote(t *testing.T) {
	tests := []struct {
		name         string
		labor        int64
		material     int64
		travel       int64
		wantOverhead int64
		wantProfit   int64
		wantTotal    int64
	}{
		{
			name:  "typical inspection",
			labor: 50000, material: 20000, travel: 5000,
			wantOverhead: 10500, // 15% of 70000
			wantProfit:   8550,  // 10% of 85500
			wantTotal:    94050,
		},
		{
			name:  "labor only",
			labor: 10000,
			wantOverhead: 1500,
			wantProfit:   1150,
			wantTotal:    12650,
		},
		{
			name:      "zero inputs",
			wantTotal: 0,
		},
		{
			name:  "rounding half up",
			labor: 3, material: 0, travel: 0,
			wantOverhead: 0, // 0.45 cents rounds down
			wantProfit:   0, // 0.3 cents rounds down
			wantTotal:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quote(tt.labor, tt.material, tt.travel)
			if got.OverheadCents != tt.wantOverhead {
				t.Errorf("overhead = %d, want %d", got.OverheadCents, tt.wantOverhead)
			}
			if got.ProfitCents != tt.wantProfit {
				t.Errorf("profit = %d, want %d", got.ProfitCents, tt.wantProfit)
			}
			if got.TotalCents != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.TotalCents, tt.wantTotal)
			}
			sum := got.LaborCents + got.MaterialCents + got.TravelCents + got.OverheadCents + got.ProfitCents
			if got.TotalCents != sum {
				t.Errorf("total %d does not equal sum of parts %d", got.TotalCents, sum)
			}
		})
	}
}
