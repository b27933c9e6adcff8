// Package energidataservice reads day-ahead spot prices from the Energi Data
// Service open data API.
package energidataservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/eloverblik-exporter/restclient"
	"github.com/angas/eloverblik-exporter/types"
	"github.com/angas/eloverblik-exporter/types/maybe"
)

const (
	ServiceName    = "energidataservice"
	DefaultBaseURL = "https://api.energidataservice.dk"

	requestsPerMinute = 25
	queryLayout       = "2006-01-02T15:04"
)

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Authorizer is optional, the dataset API is open.
	Authorizer    restclient.Authorizer
	DisablePacing bool
}

type Client struct {
	logger *slog.Logger
	exec   *restclient.Executor
}

func New(logger *slog.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	rpm := requestsPerMinute
	if cfg.DisablePacing {
		rpm = 0
	}

	logger = logger.With("module", ServiceName)
	return &Client{
		logger: logger,
		exec: restclient.New(logger, restclient.Options{
			Service:           ServiceName,
			BaseURL:           cfg.BaseURL,
			HTTPClient:        cfg.HTTPClient,
			Authorizer:        cfg.Authorizer,
			RequestsPerMinute: rpm,
		}),
	}
}

func (c *Client) GetElSpotPrices(ctx context.Context, req ElSpotPricesRequest) (*ElSpotPricesResponse, error) {
	resp, err := restclient.GetJSON[ElSpotPricesResponse](ctx, c.exec, "/dataset/Elspotprices", req.Values())
	if err != nil {
		return nil, fmt.Errorf("failed to get spot prices: %w", err)
	}
	return &resp, nil
}

// GetSpotPrices returns the hourly prices of area in [from, to). Hours the
// dataset has no price for yet are skipped.
func (c *Client) GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]types.PriceRecord, error) {
	filter, err := AreaFilter(area)
	if err != nil {
		return nil, err
	}

	hoursInRange := int(to.Sub(from).Hours()) + 1
	resp, err := c.GetElSpotPrices(ctx, ElSpotPricesRequest{
		Start:    maybe.Some(from.UTC().Format(queryLayout)),
		End:      maybe.Some(to.UTC().Format(queryLayout)),
		Timezone: maybe.Some("UTC"),
		Filter:   maybe.Some(filter),
		Sort:     maybe.Some("HourUTC ASC"),
		Limit:    maybe.Some(max(hoursInRange, 1)),
	})
	if err != nil {
		return nil, err
	}

	prices := make([]types.PriceRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		if r.SpotPriceEUR == nil {
			continue
		}
		hour, err := r.Hour()
		if err != nil {
			return nil, err
		}
		prices = append(prices, types.PriceRecord{
			HourUTC:    hour,
			PriceArea:  r.PriceArea,
			PriceLocal: maybe.FromPtr(r.SpotPriceDKK).ValueOrDefault(0),
			PriceEUR:   *r.SpotPriceEUR,
		})
	}

	c.logger.Debug("fetched spot prices", slog.String("area", area), slog.Int("count", len(prices)))
	return prices, nil
}
