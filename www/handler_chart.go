package www

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/angas/eloverblik-exporter/slice"
	"github.com/angas/eloverblik-exporter/usage"
	"github.com/angas/eloverblik-exporter/www/chartjs"
)

// NewChartHandler renders the same buckets as the usage endpoint as a
// Chart.js configuration, always in chronological order.
func NewChartHandler(logger *slog.Logger, db Database, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseUsageQuery(r, opts.DaysBack)
		if err != nil {
			writeError(logger, w, http.StatusBadRequest, err)
			return
		}

		series, err := db.GetUsageSeries(r.Context(), q.MeteringPoint, q.Granularity, q.From, q.To)
		if err != nil {
			writeError(logger, w, http.StatusInternalServerError, err)
			return
		}

		buckets := series.Chronological()
		labels := slice.Map(buckets, func(b usage.UsageBucket) string { return b.Key })

		chart := chartjs.NewChart(fmt.Sprintf("%s (%s)", q.MeteringPoint, q.Granularity), labels)
		for i, b := range buckets {
			chart.Set(i, b.EnergyWh.InexactFloat64(), b.Cost.InexactFloat64())
		}
		// Eloverblik meters consumption in kWh, costs are computed in EUR
		chart.SetAxisTitle(chartjs.AxisEnergy, "Energy (kWh)")
		chart.SetAxisTitle(chartjs.AxisCost, "Cost (EUR)")

		writeJSON(logger, w, http.StatusOK, chart)
	}
}
