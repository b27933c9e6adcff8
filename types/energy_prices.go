package types

import (
	"context"
	"time"
)

type PriceRecord struct {
	HourUTC    time.Time
	PriceArea  string
	PriceLocal float64 // Spot price in local currency (DKK) per MWh
	PriceEUR   float64 // Spot price in EUR per MWh
}

type SpotPriceProvider interface {
	GetSpotPrices(ctx context.Context, area string, from, to time.Time) ([]PriceRecord, error)
}
