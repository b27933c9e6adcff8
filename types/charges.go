package types

// ChargeSchedule is the set of charges attached to a metering point.
type ChargeSchedule struct {
	MeteringPointID string
	Subscriptions   []Subscription
	Fees            []Fee
	Tariffs         []Tariff
}

type Subscription struct {
	Name       string
	Owner      string
	Price      float64 // DKK per period
	Quantity   int
	PeriodType string
}

type Fee struct {
	Name       string
	Owner      string
	Price      float64
	Quantity   int
	PeriodType string
}

// Tariff has either a single price valid for every position or one price per position.
type Tariff struct {
	Name       string
	Owner      string
	PeriodType string
	Prices     []TariffPrice
}

type TariffPrice struct {
	Position string
	Price    float64 // DKK per kWh
}

// PriceAt returns the tariff price for a 1-based position.
func (t Tariff) PriceAt(position string) (float64, bool) {
	if len(t.Prices) == 1 {
		return t.Prices[0].Price, true
	}
	for _, p := range t.Prices {
		if p.Position == position {
			return p.Price, true
		}
	}
	return 0, false
}
