package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/angas/eloverblik-exporter/cache"
	"github.com/angas/eloverblik-exporter/config"
	"github.com/angas/eloverblik-exporter/database"
	"github.com/angas/eloverblik-exporter/eloverblik"
	"github.com/angas/eloverblik-exporter/energidataservice"
	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/angas/eloverblik-exporter/logging"
	"github.com/angas/eloverblik-exporter/nordpool"
	"github.com/angas/eloverblik-exporter/restclient"
	"github.com/angas/eloverblik-exporter/store"
	"github.com/lmittmann/tint"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

// app holds everything both the serve and export commands need.
type app struct {
	logger       *slog.Logger
	consoleLevel *slog.LevelVar
	dbLevel      *slog.LevelVar
	db           *database.Database
	eloverblik   *eloverblik.Client
	exporter     *exporter.Exporter
	closers      []func()
}

func newApp(ctx context.Context, cnfg *config.AppConfig) (a *app, err error) {
	a = &app{consoleLevel: &slog.LevelVar{}, dbLevel: &slog.LevelVar{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.consoleLevel.Set(cnfg.Logging.GetConsoleLevel())
	a.dbLevel.Set(cnfg.Logging.GetDbLevel())
	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      a.consoleLevel,
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("eloverblik exporter is starting...", slog.String("version", Version))

	if err := os.MkdirAll(filepath.Dir(cnfg.Database.Path), 0o755); err != nil {
		return a, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		return a, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	a.logger = slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, a.dbLevel, cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(a.logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(a.logger.With("module", "database"))

	tokenCache, err := newTokenCache(cnfg.Cache)
	if err != nil {
		return a, err
	}

	a.eloverblik, err = eloverblik.New(a.logger, eloverblik.Config{
		RefreshToken:    cnfg.Eloverblik.RefreshToken,
		BaseURL:         cnfg.Eloverblik.BaseURL,
		TokenCache:      tokenCache,
		CoalesceRefresh: cnfg.Eloverblik.CoalesceRefresh,
		DisablePacing:   cnfg.Eloverblik.DisablePacing,
	})
	if err != nil {
		return a, err
	}

	providers, err := newPriceProviders(a.logger, cnfg.EnergyPrice, db)
	if err != nil {
		return a, err
	}

	stores, err := a.newStores(cnfg.Store)
	if err != nil {
		return a, err
	}

	a.exporter = exporter.New(a.logger, a.eloverblik, exporter.NewFallbackPrices(a.logger, providers...), stores, db, exporter.Options{
		MeteringPoints: cnfg.Eloverblik.MeteringPoints,
		Area:           cnfg.EnergyPrice.Area,
		EnergyTax:      decimal.NewFromFloat(cnfg.EnergyPrice.Tax),
		ExchangeRate:   decimal.NewFromFloat(cnfg.EnergyPrice.ExchangeRate),
	})

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newTokenCache(cnfg config.AppConfigCache) (cache.Cache[restclient.AccessToken], error) {
	switch cnfg.Backend {
	case "memory":
		return cache.NewMemory[restclient.AccessToken](cnfg.TTL), nil
	case "disk":
		return cache.NewDisk[restclient.AccessToken](afero.NewOsFs(), cnfg.Dir, cnfg.TTL, cache.StringCodec[restclient.AccessToken]{}), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q, expected memory or disk", cnfg.Backend)
	}
}

func newPriceProviders(logger *slog.Logger, cnfg config.AppConfigEnergyPrice, db *database.Database) ([]exporter.NamedProvider, error) {
	providers := make([]exporter.NamedProvider, 0, len(cnfg.Providers))
	for _, name := range cnfg.Providers {
		switch name {
		case energidataservice.ServiceName:
			providers = append(providers, exporter.NamedProvider{
				Name:     name,
				Provider: energidataservice.New(logger, energidataservice.Config{BaseURL: cnfg.EnergiDataServiceURL}),
			})
		case nordpool.ServiceName:
			providers = append(providers, exporter.NamedProvider{
				Name:     name,
				Provider: nordpool.New(logger, cnfg.NordpoolURL, nil),
			})
		case "database":
			providers = append(providers, exporter.NamedProvider{Name: name, Provider: db})
		default:
			return nil, fmt.Errorf("unknown spot price provider %q", name)
		}
	}
	return providers, nil
}

func (a *app) newStores(cnfg config.AppConfigStore) (store.Store, error) {
	stores := store.Multi{a.db}

	if cnfg.FsDir != "" {
		stores = append(stores, store.NewFsStore(a.logger, afero.NewOsFs(), cnfg.FsDir))
	}

	if cnfg.Mqtt.Enabled {
		mqttStore := store.NewMQTTStore(a.logger, store.MQTTConfig{
			Host:        cnfg.Mqtt.Host,
			Port:        cnfg.Mqtt.Port,
			Username:    cnfg.Mqtt.Username,
			Password:    cnfg.Mqtt.Password,
			ClientID:    cnfg.Mqtt.ClientID,
			TopicPrefix: cnfg.Mqtt.TopicPrefix,
			Retain:      cnfg.Mqtt.Retain,
		})
		if err := mqttStore.Connect(); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, mqttStore.Disconnect)
		stores = append(stores, mqttStore)
	}

	return stores, nil
}
