package www

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/angas/eloverblik-exporter/usage"
	"github.com/mailgun/holster/v4/clock"
	"github.com/shopspring/decimal"
)

const (
	OrderKey           = "key"
	OrderChronological = "chronological"
)

type usageQuery struct {
	MeteringPoint string
	Granularity   usage.Granularity
	From, To      time.Time
	Order         string
}

type usageResponse struct {
	MeteringPoint string              `json:"metering_point"`
	Granularity   usage.Granularity   `json:"granularity"`
	From          time.Time           `json:"from"`
	To            time.Time           `json:"to"`
	Order         string              `json:"order"`
	TotalEnergy   decimal.Decimal     `json:"total_energy"`
	TotalCost     decimal.Decimal     `json:"total_cost"`
	Buckets       []usage.UsageBucket `json:"buckets"`
}

func parseUsageQuery(r *http.Request, daysBack int) (usageQuery, error) {
	q := usageQuery{MeteringPoint: r.PathValue("id"), Order: OrderKey}

	g := r.URL.Query().Get("granularity")
	if g == "" {
		g = usage.Hourly.String()
	}
	granularity, err := usage.ParseGranularity(g)
	if err != nil {
		return q, err
	}
	if granularity == usage.Monthly {
		return q, fmt.Errorf("%w: %s", usage.ErrUnsupportedGranularity, granularity)
	}
	q.Granularity = granularity

	defFrom, defTo := exporter.Window(clock.Now(), daysBack)
	if q.From, err = dateOrDefault(r.URL, "from", defFrom); err != nil {
		return q, err
	}
	if q.To, err = dateOrDefault(r.URL, "to", defTo); err != nil {
		return q, err
	}
	if !q.From.Before(q.To) {
		return q, errors.New("from must be before to")
	}

	switch order := r.URL.Query().Get("order"); order {
	case "", OrderKey:
	case OrderChronological:
		q.Order = OrderChronological
	default:
		return q, fmt.Errorf("invalid order %q, expected %q or %q", order, OrderKey, OrderChronological)
	}

	return q, nil
}

// NewUsageHandler serves stored buckets of one metering point. Buckets come
// in key order unless order=chronological is given.
func NewUsageHandler(logger *slog.Logger, db Database, opts Options) http.HandlerFunc {
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

		buckets := series.Ordered()
		if q.Order == OrderChronological {
			buckets = series.Chronological()
		}
		energy, cost := series.Totals()

		writeJSON(logger, w, http.StatusOK, usageResponse{
			MeteringPoint: q.MeteringPoint,
			Granularity:   q.Granularity,
			From:          q.From,
			To:            q.To,
			Order:         q.Order,
			TotalEnergy:   energy,
			TotalCost:     cost,
			Buckets:       buckets,
		})
	}
}

func NewMeteringPointsHandler(logger *slog.Logger, db Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := db.GetMeteringPointIDs(r.Context())
		if err != nil {
			writeError(logger, w, http.StatusInternalServerError, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(logger, w, http.StatusOK, ids)
	}
}
