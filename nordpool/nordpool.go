package nordpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/angas/eloverblik-exporter/restclient"
	"github.com/angas/eloverblik-exporter/types"
)

const (
	ServiceName    = "nordpool"
	DefaultBaseURL = "https://dataportal-api.nordpoolgroup.com"
)

// Delivery days of the day-ahead market run from midnight to midnight CET/CEST.
var deliveryLocation = mustLoadLocation("Europe/Copenhagen")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Nordpool is the fallback spot price source. It reports the same day-ahead
// auction as Energi Data Service, one request per delivery day and currency.
type Nordpool struct {
	logger        *slog.Logger
	exec          *restclient.Executor
	localCurrency string
}

func New(logger *slog.Logger, baseURL string, httpClient *http.Client) *Nordpool {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger = logger.With("module", ServiceName)
	return &Nordpool{
		logger:        logger,
		exec:          restclient.New(logger, restclient.Options{Service: ServiceName, BaseURL: baseURL, HTTPClient: httpClient}),
		localCurrency: "DKK",
	}
}

func (n *Nordpool) GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]types.PriceRecord, error) {
	var prices []types.PriceRecord

	f := from.In(deliveryLocation)
	for day := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, deliveryLocation); day.Before(to); day = day.AddDate(0, 0, 1) {
		date := day.Format(time.DateOnly)
		eur, err := n.getDayAheadPrices(ctx, area, date, "EUR")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices from nordpool for %s: %w", date, err)
		}
		local, err := n.getDayAheadPrices(ctx, area, date, n.localCurrency)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s prices from nordpool for %s: %w", n.localCurrency, date, err)
		}

		for hour, price := range eur {
			if hour.Before(from) || !hour.Before(to) {
				continue
			}
			prices = append(prices, types.PriceRecord{
				HourUTC:    hour,
				PriceArea:  area,
				PriceLocal: local[hour],
				PriceEUR:   price,
			})
		}
	}

	slices.SortFunc(prices, func(a, b types.PriceRecord) int { return a.HourUTC.Compare(b.HourUTC) })
	return prices, nil
}

// getDayAheadPrices returns hourly prices per MWh for a YYYY-MM-DD delivery
// date. Sub hourly entries are averaged into their hour. A day without
// published prices yields none.
func (n *Nordpool) getDayAheadPrices(ctx context.Context, area, date, currency string) (map[time.Time]float64, error) {
	q := url.Values{
		"date":         {date},
		"market":       {"DayAhead"},
		"deliveryArea": {area},
		"currency":     {currency},
	}

	data, err := restclient.GetJSON[dayAheadPrices](ctx, n.exec, "/api/DayAheadPrices", q)
	var se *restclient.StatusError
	switch {
	// Unpublished days are answered with 204 and an empty body
	case errors.Is(err, io.EOF), errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return map[time.Time]float64{}, nil
	case err != nil:
		return nil, err
	}

	sums := map[time.Time]float64{}
	counts := map[time.Time]int{}
	for _, entry := range data.MultiAreaEntries {
		price, ok := entry.EntryPerArea[area]
		if !ok {
			continue
		}
		hour := entry.DeliveryStart.UTC().Truncate(time.Hour)
		sums[hour] += price
		counts[hour]++
	}

	prices := make(map[time.Time]float64, len(sums))
	for hour, sum := range sums {
		prices[hour] = sum / float64(counts[hour])
	}
	return prices, nil
}
