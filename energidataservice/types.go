package energidataservice

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/angas/eloverblik-exporter/types/maybe"
)

// ElSpotPricesRequest holds the optional query parameters of the dataset
// endpoint. Only valid fields are sent.
type ElSpotPricesRequest struct {
	Limit    maybe.Maybe[int]
	Timezone maybe.Maybe[string]
	Start    maybe.Maybe[string]
	End      maybe.Maybe[string]
	Filter   maybe.Maybe[string]
	Sort     maybe.Maybe[string]
}

func (r ElSpotPricesRequest) Values() url.Values {
	v := url.Values{}
	if limit, ok := r.Limit.Get(); ok {
		v.Set("limit", strconv.Itoa(limit))
	}
	if tz, ok := r.Timezone.Get(); ok {
		v.Set("timezone", tz)
	}
	if start, ok := r.Start.Get(); ok {
		v.Set("start", start)
	}
	if end, ok := r.End.Get(); ok {
		v.Set("end", end)
	}
	if filter, ok := r.Filter.Get(); ok {
		v.Set("filter", filter)
	}
	if sort, ok := r.Sort.Get(); ok {
		v.Set("sort", sort)
	}
	return v
}

// AreaFilter builds the filter parameter that selects price areas.
func AreaFilter(areas ...string) (string, error) {
	b, err := json.Marshal(map[string][]string{"PriceArea": areas})
	if err != nil {
		return "", fmt.Errorf("encoding area filter: %w", err)
	}
	return string(b), nil
}

type ElSpotPricesResponse struct {
	Total   int64    `json:"total"`
	Filters string   `json:"filters"`
	Sort    string   `json:"sort"`
	Limit   int64    `json:"limit"`
	Dataset string   `json:"dataset"`
	Records []Record `json:"records"`
}

type Record struct {
	HourUTC      string   `json:"HourUTC"`
	HourDK       string   `json:"HourDK"`
	PriceArea    string   `json:"PriceArea"`
	SpotPriceDKK *float64 `json:"SpotPriceDKK"`
	SpotPriceEUR *float64 `json:"SpotPriceEUR"`
}

const hourLayout = "2006-01-02T15:04:05"

// Hour parses HourUTC, which the dataset sends without a zone designator.
func (r Record) Hour() (time.Time, error) {
	if t, err := time.ParseInLocation(hourLayout, r.HourUTC, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, r.HourUTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid HourUTC %q: %w", r.HourUTC, err)
	}
	return t.UTC(), nil
}
