package calc

import (
	"testing"

	"github.com/angas/eloverblik-exporter/types"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSpotOnly(t *testing.T) {
	got := SpotOnly(d("0.0003"), "1", d("500"))
	if !got.Equal(d("0.15")) {
		t.Errorf("SpotOnly() expected 0.15, got %s", got)
	}
}

func TestForSchedule(t *testing.T) {
	schedule := types.ChargeSchedule{
		Tariffs: []types.Tariff{
			{Name: "Nettarif", Prices: []types.TariffPrice{{Position: "1", Price: 0.2}, {Position: "18", Price: 0.6}}},
			{Name: "Systemtarif", Prices: []types.TariffPrice{{Position: "1", Price: 0.1}}},
		},
	}

	tests := []struct {
		name     string
		rate     string
		position string
		expected string
	}{
		// 2 * (0.1 + (0.2 + 0.1 + 0.7) / 10)
		{name: "night hour", rate: "10", position: "1", expected: "0.4"},
		// 2 * (0.1 + (0.6 + 0.1 + 0.7) / 10)
		{name: "peak hour", rate: "10", position: "18", expected: "0.48"},
		// 2 * (0.1 + (0.1 + 0.7) / 10)
		{name: "position without per hour tariff", rate: "10", position: "5", expected: "0.36"},
		// 2 * (0.1 + 0.2 + 0.1 + 0.7)
		{name: "no conversion", rate: "0", position: "1", expected: "2.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge := ForSchedule(schedule, d("0.7"), d(tt.rate))
			got := charge(d("0.1"), tt.position, d("2"))
			if !got.Equal(d(tt.expected)) {
				t.Errorf("charge expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestTariffAtEmptySchedule(t *testing.T) {
	if got := TariffAt(types.ChargeSchedule{}, "1"); !got.IsZero() {
		t.Errorf("TariffAt() expected 0, got %s", got)
	}
}
