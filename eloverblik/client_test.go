package eloverblik

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angas/eloverblik-exporter/cache"
	"github.com/angas/eloverblik-exporter/restclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timeSeriesBody = `{
  "result": [{
    "MyEnergyData_MarketDocument": {
      "mRID": "doc",
      "createdDateTime": "2023-08-03T08:00:00Z",
      "period.timeInterval": {"start": "2023-08-01T00:00:00Z", "end": "2023-08-02T00:00:00Z"},
      "TimeSeries": [{
        "mRID": "571313100000000001",
        "businessType": "A04",
        "curveType": "A01",
        "measurement_Unit.name": "KWH",
        "MarketEvaluationPoint": {"mRID": {"codingScheme": "A10", "name": "571313100000000001"}},
        "Period": [{
          "resolution": "PT1H",
          "timeInterval": {"start": "2023-08-01T00:00:00Z", "end": "2023-08-02T00:00:00Z"},
          "Point": [
            {"position": "1", "out_Quantity.quantity": "0.5", "out_Quantity.quality": "A04"},
            {"position": "2", "out_Quantity.quantity": "0.0", "out_Quantity.quality": "A04"}
          ]
        }]
      }]
    },
    "success": true,
    "errorCode": 10000,
    "errorText": "NoError",
    "id": "571313100000000001"
  }]
}`

const chargesBody = `{
  "result": [{
    "result": {
      "meteringPointId": "571313100000000001",
      "subscriptions": [{"name": "Net abo", "owner": "N1", "price": 21.0, "quantity": 1, "periodType": "P1M"}],
      "fees": [],
      "tariffs": [
        {"name": "Nettarif C", "owner": "N1", "periodType": "PT1H", "prices": [{"position": "1", "price": 0.15}, {"position": "2", "price": 0.45}]},
        {"name": "Elafgift", "owner": "SKAT", "periodType": "P1D", "prices": [{"position": "1", "price": 0.7}]}
      ]
    },
    "success": true,
    "errorCode": 10000,
    "errorText": "NoError",
    "id": "571313100000000001"
  }]
}`

type fakeAPI struct {
	tokenCalls atomic.Int32
	dataAuth   []string
	dataStatus int
	lastPath   string
	lastBody   meteringPointsRequest
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer refresh-token", r.Header.Get("Authorization"))
		f.tokenCalls.Add(1)
		json.NewEncoder(w).Encode(tokenResponse{Result: "access-token"})
	})

	data := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.dataAuth = append(f.dataAuth, r.Header.Get("Authorization"))
			f.lastPath = r.URL.Path
			if r.Method == http.MethodPost {
				json.NewDecoder(r.Body).Decode(&f.lastBody)
			}
			if f.dataStatus != 0 {
				w.WriteHeader(f.dataStatus)
				return
			}
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("GET /api/meteringpoints/meteringpoints", data(`{"result":[{"meteringPointId":"571313100000000001","typeOfMP":"E17","hasRelation":true}]}`))
	mux.HandleFunc("POST /api/meterdata/gettimeseries/{from}/{to}/{aggregation}", data(timeSeriesBody))
	mux.HandleFunc("POST /api/meteringpoints/meteringpoint/getcharges", data(chargesBody))
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI, tokenCache cache.Cache[restclient.AccessToken]) *Client {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(slog.Default(), Config{
		RefreshToken:  "refresh-token",
		BaseURL:       srv.URL,
		HTTPClient:    srv.Client(),
		TokenCache:    tokenCache,
		DisablePacing: true,
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresRefreshToken(t *testing.T) {
	_, err := New(slog.Default(), Config{})
	assert.Error(t, err)
}

func TestCachedTokenIsReused(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, cache.NewMemory[restclient.AccessToken](time.Hour))

	for i := 0; i < 3; i++ {
		points, err := c.GetMeteringPoints(context.Background(), true)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, "571313100000000001", points[0].MeteringPointID)
	}

	assert.Equal(t, int32(1), api.tokenCalls.Load())
	assert.Equal(t, []string{"Bearer access-token", "Bearer access-token", "Bearer access-token"}, api.dataAuth)

	state, err := c.TokenState()
	require.NoError(t, err)
	assert.Equal(t, restclient.TokenWarm, state)
}

func TestUncachedTokenIsExchangedPerRequest(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, nil)

	for i := 0; i < 2; i++ {
		_, err := c.GetMeteringPoints(context.Background(), false)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), api.tokenCalls.Load())
}

func TestGetTimeSeries(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, nil)

	from := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	intervals, err := c.MeteringIntervals(context.Background(), "571313100000000001", from, from.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, "/api/meterdata/gettimeseries/2023-08-01/2023-08-02/Hour", api.lastPath)
	assert.Equal(t, []string{"571313100000000001"}, api.lastBody.MeteringPoints.MeteringPoint)

	require.Len(t, intervals, 1)
	mi := intervals[0]
	assert.Equal(t, "571313100000000001", mi.MeteringPointID)
	assert.Equal(t, "KWH", mi.Unit)
	require.Len(t, mi.Periods, 1)
	assert.Equal(t, time.Date(2023, 8, 2, 0, 0, 0, 0, time.UTC), mi.Periods[0].End)
	require.Len(t, mi.Periods[0].Points, 2)
	assert.Equal(t, "0.0", mi.Periods[0].Points[1].Quantity)
}

func TestGetTimeSeriesRejectsBadInput(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, nil)
	day := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := c.GetTimeSeries(context.Background(), nil, day, day.AddDate(0, 0, 1), AggregationHour)
	assert.Error(t, err)
	_, err = c.GetTimeSeries(context.Background(), []string{"x"}, day, day, AggregationHour)
	assert.Error(t, err)
}

func TestResultErrorIsSurfaced(t *testing.T) {
	r := TimeSeriesResult{resultStatus: resultStatus{Success: false, ErrorCode: 20000, ErrorText: "WrongMeteringPointIdOrWebAccessCode", ID: "42"}}

	_, err := r.Intervals()
	var re *ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 20000, re.Code)
	assert.Equal(t, "42", re.MeteringPointID)
}

func TestChargeSchedule(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, nil)

	s, err := c.ChargeSchedule(context.Background(), "571313100000000001")
	require.NoError(t, err)

	assert.Equal(t, "571313100000000001", s.MeteringPointID)
	require.Len(t, s.Subscriptions, 1)
	assert.Equal(t, 21.0, s.Subscriptions[0].Price)
	require.Len(t, s.Tariffs, 2)

	p, ok := s.Tariffs[0].PriceAt("2")
	assert.True(t, ok)
	assert.Equal(t, 0.45, p)
	p, ok = s.Tariffs[1].PriceAt("17")
	assert.True(t, ok, "a single price covers every position")
	assert.Equal(t, 0.7, p)
}

func TestRateLimitedDataRequest(t *testing.T) {
	api := &fakeAPI{dataStatus: http.StatusServiceUnavailable}
	c := newTestClient(t, api, nil)

	_, err := c.GetMeteringPoints(context.Background(), true)
	var rl *restclient.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, http.StatusServiceUnavailable, rl.StatusCode)
}
