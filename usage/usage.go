// Package usage joins metering intervals with spot prices and a charge
// function into calendar keyed energy and cost buckets.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/angas/eloverblik-exporter/hours"
	"github.com/angas/eloverblik-exporter/types"
	"github.com/shopspring/decimal"
)

var (
	ErrNoTimeSeries           = errors.New("no time series in metering data")
	ErrUnsupportedGranularity = errors.New("unsupported granularity")
)

type Granularity int

const (
	Hourly Granularity = iota
	Daily
	Monthly
)

func (g Granularity) String() string {
	switch g {
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(s) {
	case "hourly", "hour":
		return Hourly, nil
	case "daily", "day":
		return Daily, nil
	case "monthly", "month":
		return Monthly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, s)
}

func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

type UsageBucket struct {
	Key string `json:"key"`
	// EnergyWh is the metered quantity in the unit of the time series,
	// kWh for Eloverblik consumption points.
	EnergyWh decimal.Decimal `json:"energy_wh"`
	Cost     decimal.Decimal `json:"cost"`
}

// Series maps calendar keys to buckets. Keys order as plain strings, which
// for MM/DD/YYYY is not chronological across months and years.
type Series struct {
	Granularity Granularity            `json:"granularity"`
	Buckets     map[string]UsageBucket `json:"data"`
}

func NewSeries(g Granularity) Series {
	return Series{Granularity: g, Buckets: map[string]UsageBucket{}}
}

func (s Series) Keys() []string {
	keys := make([]string, 0, len(s.Buckets))
	for k := range s.Buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ordered returns the buckets in key order.
func (s Series) Ordered() []UsageBucket {
	keys := s.Keys()
	out := make([]UsageBucket, len(keys))
	for i, k := range keys {
		out[i] = s.Buckets[k]
	}
	return out
}

// Chronological returns the buckets ordered by the instant their key refers
// to. Keys that are not calendar keys come first, in key order.
func (s Series) Chronological() []UsageBucket {
	out := s.Ordered()
	sort.SliceStable(out, func(i, j int) bool {
		return calendarKey(out[i].Key).Compare(calendarKey(out[j].Key)) < 0
	})
	return out
}

// calendarKey keeps an unparsable key as an invalid DateHour, which
// DateHour.Compare sorts first.
func calendarKey(key string) hours.DateHour {
	dh, err := hours.ParseKey(key)
	if err != nil {
		return hours.DateHour{Date: key}
	}
	return dh
}

func (s Series) Totals() (energy, cost decimal.Decimal) {
	energy, cost = decimal.Zero, decimal.Zero
	for _, b := range s.Buckets {
		energy = energy.Add(b.EnergyWh)
		cost = cost.Add(b.Cost)
	}
	return energy, cost
}

func (s Series) MarshalJSON() ([]byte, error) {
	type plain Series
	p := plain(s)
	if p.Buckets == nil {
		p.Buckets = map[string]UsageBucket{}
	}
	return json.Marshal(p)
}

// PriceTable holds spot prices by hourly calendar key.
type PriceTable map[string]types.PriceRecord

func NewPriceTable(records []types.PriceRecord) PriceTable {
	table := make(PriceTable, len(records))
	for _, r := range records {
		table[hours.FromTime(r.HourUTC).String()] = r
	}
	return table
}

// PricePerUnit returns the EUR price per kWh for key.
func (t PriceTable) PricePerUnit(key string) (decimal.Decimal, bool) {
	r, ok := t[key]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(r.PriceEUR).Div(decimal.NewFromInt(1000)), true
}
