// Package exporter runs one export: metering data and charges from
// Eloverblik, spot prices from the configured providers, aggregated into
// usage series and handed to the stores.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/angas/eloverblik-exporter/calc"
	"github.com/angas/eloverblik-exporter/database"
	"github.com/angas/eloverblik-exporter/eloverblik"
	"github.com/angas/eloverblik-exporter/metrics"
	"github.com/angas/eloverblik-exporter/slice"
	"github.com/angas/eloverblik-exporter/store"
	"github.com/angas/eloverblik-exporter/types"
	"github.com/angas/eloverblik-exporter/usage"
	"github.com/google/uuid"
	"github.com/mailgun/holster/v4/clock"
	"github.com/shopspring/decimal"
)

type MeterSource interface {
	GetMeteringPoints(ctx context.Context, includeAll bool) ([]eloverblik.MeteringPoint, error)
	GetTimeSeries(ctx context.Context, ids []string, from, to time.Time, aggregation eloverblik.Aggregation) (*eloverblik.TimeSeriesResponse, error)
	ChargeSchedule(ctx context.Context, id string) (types.ChargeSchedule, error)
}

// Archive keeps what the API serves back. It is implemented by the database.
type Archive interface {
	SaveSpotPrices(ctx context.Context, prices []types.PriceRecord) error
	SaveUsageSeries(ctx context.Context, meteringPointID string, series usage.Series) error
	SaveExportRun(ctx context.Context, r database.ExportRunRow) error
}

type Options struct {
	// Exported metering points, every point of the token when empty
	MeteringPoints []string
	Area           string
	EnergyTax      decimal.Decimal // DKK per kWh
	ExchangeRate   decimal.Decimal // DKK per EUR
}

type RunSummary struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	MeteringPoints int       `json:"metering_points"`
	Buckets        int       `json:"buckets"`
	Error          string    `json:"error,omitempty"`
}

func (s RunSummary) row() database.ExportRunRow {
	return database.ExportRunRow{
		ID:             s.ID,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
		From:           s.From,
		To:             s.To,
		MeteringPoints: s.MeteringPoints,
		Buckets:        s.Buckets,
		Error:          s.Error,
	}
}

var granularities = []usage.Granularity{usage.Hourly, usage.Daily}

type Exporter struct {
	logger    *slog.Logger
	meters    MeterSource
	prices    types.SpotPriceProvider
	store     store.Store
	archive   Archive
	opts      Options
	running   sync.Mutex
	mu        sync.Mutex
	listeners []func(RunSummary)
}

func New(logger *slog.Logger, meters MeterSource, prices types.SpotPriceProvider, st store.Store, archive Archive, opts Options) *Exporter {
	return &Exporter{
		logger:  logger.With("module", "exporter"),
		meters:  meters,
		prices:  prices,
		store:   st,
		archive: archive,
		opts:    opts,
	}
}

// OnFinished registers fn to be called with the summary of every run.
func (e *Exporter) OnFinished(fn func(RunSummary)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Window returns the daysBack whole UTC days before now.
func Window(now time.Time, daysBack int) (from, to time.Time) {
	to = now.UTC().Truncate(24 * time.Hour)
	return to.AddDate(0, 0, -max(daysBack, 1)), to
}

// Run exports [from, to). Only one run executes at a time, a concurrent
// call fails with ErrRunInProgress.
func (e *Exporter) Run(ctx context.Context, from, to time.Time) (RunSummary, error) {
	if !from.Before(to) {
		return RunSummary{}, fmt.Errorf("invalid export window %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	if !e.running.TryLock() {
		return RunSummary{}, ErrRunInProgress
	}
	defer e.running.Unlock()

	summary := RunSummary{ID: uuid.NewString(), StartedAt: clock.Now().UTC(), From: from.UTC(), To: to.UTC()}
	logger := e.logger.With(slog.String("run", summary.ID))
	logger.Info("export started", slog.Time("from", summary.From), slog.Time("to", summary.To))

	err := e.run(ctx, logger, &summary)

	summary.FinishedAt = clock.Now().UTC()
	duration := summary.FinishedAt.Sub(summary.StartedAt)
	metrics.RecordExportRun(err, duration)
	if err != nil {
		summary.Error = err.Error()
		logger.Error("export failed", slog.Any("error", err))
	} else {
		logger.Info("export done",
			slog.Int("metering_points", summary.MeteringPoints),
			slog.Int("buckets", summary.Buckets),
			slog.Duration("duration", duration))
	}

	// The run record is written even when ctx was cancelled.
	if saveErr := e.archive.SaveExportRun(context.WithoutCancel(ctx), summary.row()); saveErr != nil {
		logger.Error("saving export run failed", slog.Any("error", saveErr))
	}
	e.notify(summary)

	return summary, err
}

func (e *Exporter) run(ctx context.Context, logger *slog.Logger, summary *RunSummary) error {
	ids, err := e.meteringPoints(ctx)
	if err != nil {
		return err
	}
	summary.MeteringPoints = len(ids)

	prices, err := e.prices.GetSpotPrices(ctx, e.opts.Area, summary.From, summary.To)
	if err != nil {
		return fmt.Errorf("fetching spot prices: %w", err)
	}
	if len(prices) == 0 {
		logger.Warn("no spot prices for the export window, costs will be 0", slog.String("area", e.opts.Area))
	} else if err := e.archive.SaveSpotPrices(ctx, prices); err != nil {
		return err
	}
	table := usage.NewPriceTable(prices)

	for _, id := range ids {
		n, err := e.exportMeteringPoint(ctx, logger, id, table, summary.From, summary.To)
		if err != nil {
			return err
		}
		summary.Buckets += n
	}

	return e.put(ctx, store.StringDoc("last_export", clock.Now().UTC().Format(time.RFC3339)))
}

func (e *Exporter) meteringPoints(ctx context.Context) ([]string, error) {
	if ids := slice.Unique(e.opts.MeteringPoints); len(ids) > 0 {
		return ids, nil
	}

	points, err := e.meters.GetMeteringPoints(ctx, false)
	if err != nil {
		return nil, &UpstreamError{Service: eloverblik.ServiceName, Err: err}
	}
	ids := slice.Unique(slice.Map(points, func(p eloverblik.MeteringPoint) string { return p.MeteringPointID }))
	if len(ids) == 0 {
		return nil, errors.New("no metering points available for the refresh token")
	}
	return ids, nil
}

func (e *Exporter) exportMeteringPoint(ctx context.Context, logger *slog.Logger, id string, prices usage.PriceTable, from, to time.Time) (int, error) {
	logger = logger.With(slog.String("metering_point", id))

	resp, err := e.meters.GetTimeSeries(ctx, []string{id}, from, to, eloverblik.AggregationHour)
	if err != nil {
		return 0, &UpstreamError{Service: eloverblik.ServiceName, Err: err}
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return 0, fmt.Errorf("encoding meter data of %s: %w", id, err)
	}
	if err := e.put(ctx, store.MeterDataDoc(id, payload)); err != nil {
		return 0, err
	}

	var intervals []types.MeteringInterval
	for _, r := range resp.Result {
		mi, err := r.Intervals()
		if err != nil {
			return 0, &UpstreamError{Service: eloverblik.ServiceName, Err: err}
		}
		intervals = append(intervals, mi...)
	}

	schedule, err := e.meters.ChargeSchedule(ctx, id)
	if err != nil {
		return 0, &UpstreamError{Service: eloverblik.ServiceName, Err: err}
	}

	engine := usage.NewEngine(logger, prices, calc.ForSchedule(schedule, e.opts.EnergyTax, e.opts.ExchangeRate))
	written := 0
	for _, g := range granularities {
		series, err := engine.Aggregate(intervals, g)
		if errors.Is(err, usage.ErrNoTimeSeries) {
			logger.Warn("no time series returned, metering point skipped")
			return 0, nil
		}
		if err != nil {
			return written, fmt.Errorf("aggregating %s usage of %s: %w", g, id, err)
		}

		if err := e.put(ctx, store.UsageDoc(fmt.Sprintf("%s_%s", id, g), series)); err != nil {
			return written, err
		}
		if err := e.archive.SaveUsageSeries(ctx, id, series); err != nil {
			return written, err
		}
		metrics.BucketsWrittenTotal.WithLabelValues(g.String()).Add(float64(len(series.Buckets)))
		written += len(series.Buckets)

		energy, cost := series.Totals()
		logger.Debug("usage series written",
			slog.String("granularity", g.String()),
			slog.Int("buckets", len(series.Buckets)),
			slog.String("energy", energy.String()),
			slog.String("cost", cost.StringFixed(4)))
	}
	return written, nil
}

func (e *Exporter) put(ctx context.Context, doc store.Document) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("storing %s document %s: %w", doc.Kind, doc.Key, err)
	}
	return nil
}

func (e *Exporter) notify(s RunSummary) {
	e.mu.Lock()
	listeners := append([]func(RunSummary){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
