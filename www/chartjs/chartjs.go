// Package chartjs builds Chart.js configurations for usage series.
package chartjs

import (
	"math"
)

const (
	AxisEnergy = "energy"
	AxisCost   = "cost"

	ColorYellow = "#ffc107d4"
	ColorRed    = "#f44336d4"
)

// NewChart returns a line chart with one energy and one cost value per
// label, each on its own y axis.
func NewChart(title string, labels []string) Chart {
	return Chart{
		Type: "line",
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{
				{Label: "Energy", Data: make([]*float64, len(labels)), Fill: true, BorderColor: ColorYellow, YAxisID: AxisEnergy},
				{Label: "Cost", Data: make([]*float64, len(labels)), BorderColor: ColorRed, YAxisID: AxisCost},
			},
		},
		Options: Options{
			Responsive: true,
			Plugins:    Plugins{Title: Title{Display: title != "", Text: title}},
			Scales: map[string]Scale{
				AxisEnergy: {Type: "linear", Position: "left", Title: Title{Color: ColorYellow}},
				AxisCost:   {Type: "linear", Position: "right", Title: Title{Color: ColorRed}},
			},
		},
	}
}

// SetAxisTitle shows text next to the axis. Unknown axes are ignored.
func (c *Chart) SetAxisTitle(axis, text string) {
	s, ok := c.Options.Scales[axis]
	if !ok {
		return
	}
	s.Title.Display = text != ""
	s.Title.Text = text
	c.Options.Scales[axis] = s
}

// Set stores the energy and cost of the i-th label, rounded for display.
func (c *Chart) Set(i int, energy, cost float64) {
	c.Data.Datasets[0].Data[i] = FixedFloat64(energy, 3)
	c.Data.Datasets[1].Data[i] = FixedFloat64(cost, 4)
}

func FixedFloat64(num float64, precision int) *float64 {
	p := math.Pow(10, float64(precision))
	result := math.Round(num*p) / p
	return &result
}
