package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/angas/eloverblik-exporter/config"
	"github.com/angas/eloverblik-exporter/energidataservice"
	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/angas/eloverblik-exporter/nordpool"
	"github.com/lmittmann/tint"
	"github.com/mailgun/holster/v4/clock"
)

// Prints the spot prices of the last days, the same way an export fetches
// them but without touching the database.
func main() {
	configPath := flag.String("config", "", "path to config file")
	days := flag.Int("days", 1, "number of days before today")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339Nano,
	}))

	cnfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	prices := exporter.NewFallbackPrices(logger,
		exporter.NamedProvider{
			Name:     energidataservice.ServiceName,
			Provider: energidataservice.New(logger, energidataservice.Config{BaseURL: cnfg.EnergyPrice.EnergiDataServiceURL}),
		},
		exporter.NamedProvider{
			Name:     nordpool.ServiceName,
			Provider: nordpool.New(logger, cnfg.EnergyPrice.NordpoolURL, nil),
		})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	from, to := exporter.Window(clock.Now(), *days)
	records, err := prices.GetSpotPrices(ctx, cnfg.EnergyPrice.Area, from, to)
	if err != nil {
		logger.Error("failed to fetch spot prices", slog.Any("error", err))
		os.Exit(1)
	}

	for _, r := range records {
		fmt.Printf("%s\t%s\t%8.2f EUR/MWh\t%8.2f DKK/MWh\n", r.HourUTC.Format(time.RFC3339), r.PriceArea, r.PriceEUR, r.PriceLocal)
	}
}
