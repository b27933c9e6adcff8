package nordpool

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSpotPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/DayAheadPrices", r.URL.Path)
		assert.Equal(t, "DK1", q.Get("deliveryArea"))

		if q.Get("date") != "2023-08-01" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		factor := 1.0
		if q.Get("currency") == "DKK" {
			factor = 7.45
		}
		// 15 minute entries for 00:00 average to 100, 01:00 is hourly
		fmt.Fprintf(w, `{"currency": %q, "multiAreaEntries": [
			{"deliveryStart": "2023-08-01T00:00:00Z", "deliveryEnd": "2023-08-01T00:15:00Z", "entryPerArea": {"DK1": %f, "DK2": 1}},
			{"deliveryStart": "2023-08-01T00:15:00Z", "deliveryEnd": "2023-08-01T00:30:00Z", "entryPerArea": {"DK1": %f}},
			{"deliveryStart": "2023-08-01T01:00:00Z", "deliveryEnd": "2023-08-01T02:00:00Z", "entryPerArea": {"DK1": %f}}
		]}`, q.Get("currency"), 90*factor, 110*factor, 50*factor)
	}))
	defer srv.Close()

	n := New(slog.Default(), srv.URL, srv.Client())
	from := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)

	prices, err := n.GetSpotPrices(context.Background(), "DK1", from, from.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, prices, 2)

	assert.Equal(t, from, prices[0].HourUTC)
	assert.InDelta(t, 100, prices[0].PriceEUR, 1e-9)
	assert.InDelta(t, 745, prices[0].PriceLocal, 1e-9)
	assert.Equal(t, from.Add(time.Hour), prices[1].HourUTC)
	assert.InDelta(t, 50, prices[1].PriceEUR, 1e-9)
	assert.Equal(t, "DK1", prices[1].PriceArea)
}

func TestGetSpotPricesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(slog.Default(), srv.URL, srv.Client())
	_, err := n.GetSpotPrices(context.Background(), "DK1", time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestGetSpotPricesFollowsDeliveryDays(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("currency") == "EUR" {
			requested = append(requested, q.Get("date"))
		}

		day, err := time.ParseInLocation(time.DateOnly, q.Get("date"), deliveryLocation)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// One entry per hour of the CET/CEST delivery day
		fmt.Fprint(w, `{"multiAreaEntries": [`)
		for i := 0; i < 24; i++ {
			start := day.Add(time.Duration(i) * time.Hour).UTC()
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"deliveryStart": %q, "deliveryEnd": %q, "entryPerArea": {"DK1": %d}}`,
				start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339), i)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer srv.Close()

	n := New(slog.Default(), srv.URL, srv.Client())
	from := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	prices, err := n.GetSpotPrices(context.Background(), "DK1", from, to)
	require.NoError(t, err)
	require.Len(t, prices, 24)

	assert.Equal(t, []string{"2023-08-01", "2023-08-02"}, requested)
	assert.Equal(t, from, prices[0].HourUTC)
	assert.InDelta(t, 2, prices[0].PriceEUR, 1e-9)
	assert.Equal(t, to.Add(-time.Hour), prices[23].HourUTC)
	// 23:00 UTC is the second hour of the 2023-08-02 delivery day
	assert.InDelta(t, 1, prices[23].PriceEUR, 1e-9)
}
