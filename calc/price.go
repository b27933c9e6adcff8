package calc

import (
	"github.com/angas/eloverblik-exporter/types"
	"github.com/shopspring/decimal"
)

// ChargeFunc turns a spot price per kWh in EUR, a 1-based position within
// the day and a consumed quantity into a cost in EUR.
type ChargeFunc func(price decimal.Decimal, position string, quantity decimal.Decimal) decimal.Decimal

// SpotOnly charges the bare spot price.
func SpotOnly(price decimal.Decimal, _ string, quantity decimal.Decimal) decimal.Decimal {
	return BuyPrice(quantity, price, decimal.Zero)
}

func BuyPrice(kWh, price, surcharge decimal.Decimal) decimal.Decimal {
	return kWh.Mul(price.Add(surcharge))
}

// ForSchedule charges the spot price plus every tariff of the schedule and
// the energy tax. Tariffs and tax are in DKK and converted with exchangeRate
// DKK per EUR. A non-positive rate leaves the surcharge in its own currency.
func ForSchedule(schedule types.ChargeSchedule, energyTax, exchangeRate decimal.Decimal) ChargeFunc {
	return func(price decimal.Decimal, position string, quantity decimal.Decimal) decimal.Decimal {
		surcharge := TariffAt(schedule, position).Add(energyTax)
		if exchangeRate.IsPositive() {
			surcharge = surcharge.Div(exchangeRate)
		}
		return BuyPrice(quantity, price, surcharge)
	}
}

// TariffAt sums the tariffs of the schedule that apply to position. Tariffs
// with no price for the position are skipped.
func TariffAt(schedule types.ChargeSchedule, position string) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range schedule.Tariffs {
		if p, ok := t.PriceAt(position); ok {
			sum = sum.Add(decimal.NewFromFloat(p))
		}
	}
	return sum
}
