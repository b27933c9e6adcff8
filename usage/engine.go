package usage

import (
	"fmt"
	"log/slog"

	"github.com/angas/eloverblik-exporter/calc"
	"github.com/angas/eloverblik-exporter/hours"
	"github.com/angas/eloverblik-exporter/types"
	"github.com/shopspring/decimal"
)

type Engine struct {
	logger *slog.Logger
	prices PriceTable
	charge calc.ChargeFunc
}

func NewEngine(logger *slog.Logger, prices PriceTable, charge calc.ChargeFunc) *Engine {
	if charge == nil {
		charge = calc.SpotOnly
	}
	return &Engine{
		logger: logger.With("module", "usage"),
		prices: prices,
		charge: charge,
	}
}

// Aggregate computes the series of the last interval. Upstream returns one
// interval per requested metering point, the last one is the current.
func (e *Engine) Aggregate(intervals []types.MeteringInterval, g Granularity) (Series, error) {
	if len(intervals) == 0 {
		return Series{}, ErrNoTimeSeries
	}
	mi := intervals[len(intervals)-1]

	switch g {
	case Hourly:
		return e.Hourly(mi)
	case Daily:
		return e.Daily(mi)
	default:
		return Series{}, fmt.Errorf("%w: %s", ErrUnsupportedGranularity, g)
	}
}

func (e *Engine) Hourly(mi types.MeteringInterval) (Series, error) {
	series := NewSeries(Hourly)
	missing := 0

	for _, period := range mi.Periods {
		for _, point := range period.Points {
			key, quantity, cost, priced, err := e.point(period, point)
			if err != nil {
				return Series{}, err
			}
			if !priced {
				missing++
			}
			series.Buckets[key.String()] = UsageBucket{Key: key.String(), EnergyWh: quantity, Cost: cost}
		}
	}

	if missing > 0 {
		e.logger.Warn("no spot price for some hours, cost set to 0",
			slog.String("metering_point", mi.MeteringPointID),
			slog.Int("hours", missing))
	}
	return series, nil
}

func (e *Engine) Daily(mi types.MeteringInterval) (Series, error) {
	series := NewSeries(Daily)
	totals := map[string]UsageBucket{}

	for _, period := range mi.Periods {
		date := hours.DateKey(period.End)
		total, ok := totals[date]
		if !ok {
			total = UsageBucket{Key: date, EnergyWh: decimal.Zero, Cost: decimal.Zero}
		}
		for _, point := range period.Points {
			_, quantity, cost, _, err := e.point(period, point)
			if err != nil {
				return Series{}, err
			}
			total.EnergyWh = total.EnergyWh.Add(quantity)
			total.Cost = total.Cost.Add(cost)
		}
		totals[date] = total
	}

	for date, total := range totals {
		total.EnergyWh = total.EnergyWh.Truncate(2)
		series.Buckets[date] = total
	}
	return series, nil
}

// point keys, parses and prices one reading. priced is false when no spot
// price exists for the hour.
func (e *Engine) point(period types.Period, point types.Point) (hours.DateHour, decimal.Decimal, decimal.Decimal, bool, error) {
	key, err := hours.FromPosition(period.End, point.Position)
	if err != nil {
		return hours.DateHour{}, decimal.Zero, decimal.Zero, false, err
	}

	quantity, err := decimal.NewFromString(point.Quantity)
	if err != nil {
		return hours.DateHour{}, decimal.Zero, decimal.Zero, false, fmt.Errorf("invalid quantity %q at %s: %w", point.Quantity, key, err)
	}

	price, ok := e.prices.PricePerUnit(key.String())
	if !ok {
		return key, quantity, decimal.Zero, false, nil
	}
	if quantity.IsZero() {
		return key, quantity, decimal.Zero, true, nil
	}
	return key, quantity, e.charge(price, point.Position, quantity), true, nil
}
