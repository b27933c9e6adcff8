package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/eloverblik-exporter/types"
)

type NamedProvider struct {
	Name     string
	Provider types.SpotPriceProvider
}

// FallbackPrices asks each provider in turn and returns the first non-empty
// answer. Failing providers are logged and skipped.
type FallbackPrices struct {
	logger    *slog.Logger
	providers []NamedProvider
}

func NewFallbackPrices(logger *slog.Logger, providers ...NamedProvider) *FallbackPrices {
	return &FallbackPrices{logger: logger.With("module", "spot_prices"), providers: providers}
}

func (f *FallbackPrices) GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]types.PriceRecord, error) {
	if len(f.providers) == 0 {
		return nil, errors.New("no spot price providers")
	}

	var errs []error
	for _, p := range f.providers {
		prices, err := p.Provider.GetSpotPrices(ctx, area, from, to)
		if err != nil {
			f.logger.Warn("spot price provider failed", slog.String("provider", p.Name), slog.Any("error", err))
			errs = append(errs, &UpstreamError{Service: p.Name, Err: err})
			continue
		}
		if len(prices) == 0 {
			f.logger.Debug("spot price provider had no prices", slog.String("provider", p.Name), slog.String("area", area))
			continue
		}
		f.logger.Debug("spot prices fetched", slog.String("provider", p.Name), slog.Int("count", len(prices)))
		return prices, nil
	}

	if len(errs) == len(f.providers) {
		return nil, fmt.Errorf("all spot price providers failed: %w", errors.Join(errs...))
	}
	return nil, nil
}
