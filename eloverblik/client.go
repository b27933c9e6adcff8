// Package eloverblik is a client for the Eloverblik customer API. A refresh
// token issued in the portal is exchanged for a short lived access token,
// which authorizes the data endpoints.
package eloverblik

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angas/eloverblik-exporter/cache"
	"github.com/angas/eloverblik-exporter/hours"
	"github.com/angas/eloverblik-exporter/restclient"
	"github.com/angas/eloverblik-exporter/types"
)

const (
	ServiceName    = "eloverblik"
	DefaultBaseURL = "https://api.eloverblik.dk/customerapi"

	// Published limits of the customer API, per client IP.
	tokenRequestsPerMinute = 2
	dataRequestsPerMinute  = 25
)

type Config struct {
	RefreshToken string
	BaseURL      string
	HTTPClient   *http.Client
	// TokenCache is optional, without it every request exchanges a new token.
	TokenCache cache.Cache[restclient.AccessToken]
	// CoalesceRefresh lets concurrent requests share one token exchange.
	CoalesceRefresh bool
	// DisablePacing turns off the client side request limits.
	DisablePacing bool
}

type Client struct {
	logger *slog.Logger
	token  *restclient.Executor
	data   *restclient.Executor
	tokens *restclient.TokenManager
}

func New(logger *slog.Logger, cfg Config) (*Client, error) {
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("eloverblik refresh token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	tokenRate, dataRate := tokenRequestsPerMinute, dataRequestsPerMinute
	if cfg.DisablePacing {
		tokenRate, dataRate = 0, 0
	}

	logger = logger.With("module", ServiceName)
	c := &Client{logger: logger}

	c.token = restclient.New(logger, restclient.Options{
		Service:           ServiceName,
		BaseURL:           cfg.BaseURL,
		HTTPClient:        cfg.HTTPClient,
		Authorizer:        restclient.StaticBearer(cfg.RefreshToken),
		RequestsPerMinute: tokenRate,
	})
	c.tokens = restclient.NewTokenManager(logger, c.exchange, restclient.TokenManagerOptions{
		Service:  ServiceName,
		Cache:    cfg.TokenCache,
		Coalesce: cfg.CoalesceRefresh,
	})
	c.data = restclient.New(logger, restclient.Options{
		Service:           ServiceName,
		BaseURL:           cfg.BaseURL,
		HTTPClient:        cfg.HTTPClient,
		Authorizer:        c.tokens,
		RequestsPerMinute: dataRate,
	})

	return c, nil
}

func (c *Client) exchange(ctx context.Context) (restclient.AccessToken, error) {
	resp, err := restclient.GetJSON[tokenResponse](ctx, c.token, "/api/token", nil)
	if err != nil {
		return "", err
	}
	if resp.Result == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}
	c.logger.Info("exchanged refresh token for access token")
	return restclient.AccessToken(resp.Result), nil
}

func (c *Client) TokenState() (restclient.TokenState, error) {
	return c.tokens.State()
}

func (c *Client) GetMeteringPoints(ctx context.Context, includeAll bool) ([]MeteringPoint, error) {
	q := url.Values{"includeAll": {strconv.FormatBool(includeAll)}}
	resp, err := restclient.GetJSON[meteringPointsResponse](ctx, c.data, "/api/meteringpoints/meteringpoints", q)
	if err != nil {
		return nil, fmt.Errorf("failed to get metering points: %w", err)
	}
	return resp.Result, nil
}

// GetTimeSeries returns one result per requested metering point. Dates are
// inclusive from and exclusive to, in UTC.
func (c *Client) GetTimeSeries(ctx context.Context, ids []string, from, to time.Time, aggregation Aggregation) (*TimeSeriesResponse, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no metering points requested")
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid date range %s to %s", hours.IsoDate(from), hours.IsoDate(to))
	}

	path := fmt.Sprintf("/api/meterdata/gettimeseries/%s/%s/%s", hours.IsoDate(from), hours.IsoDate(to), aggregation)
	body := meteringPointsRequest{MeteringPoints: MeteringPoints{MeteringPoint: ids}}

	resp, err := restclient.PostJSON[TimeSeriesResponse](ctx, c.data, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to get time series: %w", err)
	}
	return &resp, nil
}

func (c *Client) GetCharges(ctx context.Context, ids []string) (*ChargesResponse, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no metering points requested")
	}
	body := meteringPointsRequest{MeteringPoints: MeteringPoints{MeteringPoint: ids}}

	resp, err := restclient.PostJSON[ChargesResponse](ctx, c.data, "/api/meteringpoints/meteringpoint/getcharges", body)
	if err != nil {
		return nil, fmt.Errorf("failed to get charges: %w", err)
	}
	return &resp, nil
}

// MeteringIntervals fetches hourly readings for one metering point.
func (c *Client) MeteringIntervals(ctx context.Context, id string, from, to time.Time) ([]types.MeteringInterval, error) {
	resp, err := c.GetTimeSeries(ctx, []string{id}, from, to, AggregationHour)
	if err != nil {
		return nil, err
	}

	var intervals []types.MeteringInterval
	for _, r := range resp.Result {
		mi, err := r.Intervals()
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, mi...)
	}
	return intervals, nil
}

func (c *Client) ChargeSchedule(ctx context.Context, id string) (types.ChargeSchedule, error) {
	resp, err := c.GetCharges(ctx, []string{id})
	if err != nil {
		return types.ChargeSchedule{}, err
	}
	if len(resp.Result) == 0 {
		return types.ChargeSchedule{MeteringPointID: id}, nil
	}
	s, err := resp.Result[len(resp.Result)-1].Schedule()
	if err != nil {
		return types.ChargeSchedule{}, err
	}
	if s.MeteringPointID == "" {
		s.MeteringPointID = id
	}
	return s, nil
}
