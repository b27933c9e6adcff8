package eloverblik

import (
	"fmt"
	"time"

	"github.com/angas/eloverblik-exporter/types"
)

type Aggregation string

const (
	AggregationActual  Aggregation = "Actual"
	AggregationQuarter Aggregation = "Quarter"
	AggregationHour    Aggregation = "Hour"
	AggregationDay     Aggregation = "Day"
	AggregationMonth   Aggregation = "Month"
	AggregationYear    Aggregation = "Year"
)

type tokenResponse struct {
	Result string `json:"result"`
}

type MeteringPoints struct {
	MeteringPoint []string `json:"meteringPoint"`
}

type meteringPointsRequest struct {
	MeteringPoints MeteringPoints `json:"meteringPoints"`
}

type MeteringPoint struct {
	MeteringPointID        string `json:"meteringPointId"`
	TypeOfMP               string `json:"typeOfMP"`
	MeterNumber            string `json:"meterNumber"`
	MeterReadingOccurrence string `json:"meterReadingOccurrence"`
	SettlementMethod       string `json:"settlementMethod"`
	BalanceSupplierName    string `json:"balanceSupplierName"`
	StreetName             string `json:"streetName"`
	BuildingNumber         string `json:"buildingNumber"`
	Postcode               string `json:"postcode"`
	CityName               string `json:"cityName"`
	ConsumerStartDate      string `json:"consumerStartDate"`
	HasRelation            bool   `json:"hasRelation"`
}

type meteringPointsResponse struct {
	Result []MeteringPoint `json:"result"`
}

// resultStatus is attached to each per metering point result.
type resultStatus struct {
	Success   bool   `json:"success"`
	ErrorCode int    `json:"errorCode"`
	ErrorText string `json:"errorText"`
	ID        string `json:"id"`
}

func (s resultStatus) err() error {
	if s.Success {
		return nil
	}
	return &ResultError{MeteringPointID: s.ID, Code: s.ErrorCode, Text: s.ErrorText}
}

// ResultError is a failure reported inside an otherwise successful response.
type ResultError struct {
	MeteringPointID string
	Code            int
	Text            string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("metering point %s: error %d: %s", e.MeteringPointID, e.Code, e.Text)
}

type TimeSeriesResponse struct {
	Result []TimeSeriesResult `json:"result"`
}

type TimeSeriesResult struct {
	resultStatus
	MarketDocument MarketDocument `json:"MyEnergyData_MarketDocument"`
}

type MarketDocument struct {
	MRID            string       `json:"mRID"`
	CreatedDateTime string       `json:"createdDateTime"`
	TimeInterval    TimeInterval `json:"period.timeInterval"`
	TimeSeries      []TimeSeries `json:"TimeSeries"`
}

type TimeInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type TimeSeries struct {
	MRID                  string `json:"mRID"`
	BusinessType          string `json:"businessType"`
	CurveType             string `json:"curveType"`
	MeasurementUnitName   string `json:"measurement_Unit.name"`
	MarketEvaluationPoint struct {
		MRID struct {
			CodingScheme string `json:"codingScheme"`
			Name         string `json:"name"`
		} `json:"mRID"`
	} `json:"MarketEvaluationPoint"`
	Period []Period `json:"Period"`
}

type Period struct {
	Resolution   string       `json:"resolution"`
	TimeInterval TimeInterval `json:"timeInterval"`
	Point        []Point      `json:"Point"`
}

type Point struct {
	Position        string `json:"position"`
	OutQuantity     string `json:"out_Quantity.quantity"`
	OutQuantityQual string `json:"out_Quantity.quality"`
}

// Intervals converts every time series of the result, in response order.
func (r TimeSeriesResult) Intervals() ([]types.MeteringInterval, error) {
	if err := r.err(); err != nil {
		return nil, err
	}

	intervals := make([]types.MeteringInterval, 0, len(r.MarketDocument.TimeSeries))
	for _, ts := range r.MarketDocument.TimeSeries {
		mi := types.MeteringInterval{
			MeteringPointID: ts.MRID,
			Unit:            ts.MeasurementUnitName,
			Periods:         make([]types.Period, 0, len(ts.Period)),
		}
		for _, p := range ts.Period {
			start, err := time.Parse(time.RFC3339, p.TimeInterval.Start)
			if err != nil {
				return nil, fmt.Errorf("parsing period start %q: %w", p.TimeInterval.Start, err)
			}
			end, err := time.Parse(time.RFC3339, p.TimeInterval.End)
			if err != nil {
				return nil, fmt.Errorf("parsing period end %q: %w", p.TimeInterval.End, err)
			}

			points := make([]types.Point, len(p.Point))
			for i, pt := range p.Point {
				points[i] = types.Point{Position: pt.Position, Quantity: pt.OutQuantity, Quality: pt.OutQuantityQual}
			}

			mi.Periods = append(mi.Periods, types.Period{
				Start:      start.UTC(),
				End:        end.UTC(),
				Resolution: p.Resolution,
				Points:     points,
			})
		}
		intervals = append(intervals, mi)
	}

	return intervals, nil
}

type ChargesResponse struct {
	Result []ChargesResult `json:"result"`
}

type ChargesResult struct {
	resultStatus
	Result Charges `json:"result"`
}

type Charges struct {
	MeteringPointID string         `json:"meteringPointId"`
	Subscriptions   []Subscription `json:"subscriptions"`
	Fees            []Subscription `json:"fees"`
	Tariffs         []Tariff       `json:"tariffs"`
}

type Subscription struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Owner         string  `json:"owner"`
	ValidFromDate string  `json:"validFromDate"`
	ValidToDate   *string `json:"validToDate"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	PeriodType    string  `json:"periodType"`
}

type Tariff struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Owner         string        `json:"owner"`
	ValidFromDate string        `json:"validFromDate"`
	ValidToDate   *string       `json:"validToDate"`
	PeriodType    string        `json:"periodType"`
	Prices        []TariffPrice `json:"prices"`
}

type TariffPrice struct {
	Position string  `json:"position"`
	Price    float64 `json:"price"`
}

func (r ChargesResult) Schedule() (types.ChargeSchedule, error) {
	if err := r.err(); err != nil {
		return types.ChargeSchedule{}, err
	}

	s := types.ChargeSchedule{MeteringPointID: r.Result.MeteringPointID}
	for _, sub := range r.Result.Subscriptions {
		s.Subscriptions = append(s.Subscriptions, types.Subscription{
			Name: sub.Name, Owner: sub.Owner, Price: sub.Price, Quantity: sub.Quantity, PeriodType: sub.PeriodType,
		})
	}
	for _, fee := range r.Result.Fees {
		s.Fees = append(s.Fees, types.Fee{
			Name: fee.Name, Owner: fee.Owner, Price: fee.Price, Quantity: fee.Quantity, PeriodType: fee.PeriodType,
		})
	}
	for _, t := range r.Result.Tariffs {
		tariff := types.Tariff{Name: t.Name, Owner: t.Owner, PeriodType: t.PeriodType}
		for _, p := range t.Prices {
			tariff.Prices = append(tariff.Prices, types.TariffPrice{Position: p.Position, Price: p.Price})
		}
		s.Tariffs = append(s.Tariffs, tariff)
	}
	return s, nil
}
